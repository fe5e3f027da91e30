/*
Copyright (c) 2020 SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenting/pkicheck/pkg/pki/certtest"
)

func newStore(t *testing.T, certs map[string]time.Duration) string {
	dir, err := ioutil.TempDir("", "pkicheck")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	fs := afero.NewOsFs()
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "pki", "issued"), 0755))

	serial := int64(1)
	for name, validFor := range certs {
		certtest.WriteFile(t, fs, filepath.Join(dir, "pki", "issued", name+".crt"), certtest.Template{
			CommonName: name,
			Serial:     serial,
			NotAfter:   time.Now().Add(validFor).Truncate(time.Second),
		})
		serial++
	}
	return dir
}

func runCommand(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const day = 24 * time.Hour

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		certs        map[string]time.Duration
		args         []string
		expectCode   int
		expectOutput string
	}{
		{
			name:         "ok",
			certs:        map[string]time.Duration{"server": 400*day + time.Hour},
			expectCode:   0,
			expectOutput: "pkicheck: OK - 1 certificates verified.\n",
		},
		{
			name:         "critical",
			certs:        map[string]time.Duration{"server": 5*day + time.Hour},
			expectCode:   2,
			expectOutput: "pkicheck: CRITICAL - CN=server expires in 5 days.\n",
		},
		{
			name:         "expired",
			certs:        map[string]time.Duration{"server": -3*day - time.Hour},
			expectCode:   2,
			expectOutput: "pkicheck: CRITICAL - CN=server expired 3 day(s) ago.\n",
		},
		{
			name:         "warning",
			certs:        map[string]time.Duration{"a": 20*day + time.Hour, "b": 400*day + time.Hour},
			expectCode:   1,
			expectOutput: "pkicheck: WARNING - CN=a expires in 20 days.\n",
		},
		{
			name:         "custom thresholds",
			certs:        map[string]time.Duration{"a": 20*day + time.Hour},
			args:         []string{"-c", "2", "-w", "10"},
			expectCode:   0,
			expectOutput: "pkicheck: OK - 1 certificates verified.\n",
		},
		{
			name:         "verbose",
			certs:        map[string]time.Duration{"a": 100*day + time.Hour},
			args:         []string{"-v"},
			expectCode:   0,
			expectOutput: "pkicheck: OK - CN=a has 100 day(s) left.\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dir := newStore(t, tt.certs)

			code, stdout, _ := runCommand(append([]string{"-b", dir}, tt.args...)...)
			assert.Equal(t, tt.expectCode, code)
			assert.Equal(t, tt.expectOutput, stdout)
		})
	}
}

func TestRunMissingBaseDirectory(t *testing.T) {
	code, stdout, _ := runCommand("-b", "/nonexistent/easy-rsa")

	assert.Equal(t, 3, code)
	assert.True(t, strings.HasPrefix(stdout, "pkicheck: UNKNOWN - cannot scan /nonexistent/easy-rsa/pki"), stdout)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing base directory flag", args: []string{}},
		{name: "negative threshold", args: []string{"-b", "/srv/ca", "-c", "-1"}},
		{name: "not a number", args: []string{"-b", "/srv/ca", "-w", "soon"}},
		{name: "unknown flag", args: []string{"-x"}},
		{name: "positional argument", args: []string{"-b", "/srv/ca", "extra"}},
		{name: "missing config file", args: []string{"--config", "/nonexistent.yaml"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCommand(tt.args...)

			assert.Equal(t, 3, code)
			assert.True(t, strings.HasPrefix(stdout, "pkicheck: UNKNOWN - "), stdout)
			assert.Equal(t, 1, strings.Count(stdout, "\n"))
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	code, stdout, _ := runCommand("-V")
	assert.Equal(t, 0, code)
	assert.Equal(t, "pkicheck unreleased\n", stdout)

	code, stdout, _ = runCommand("-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "--basedir")
}

func TestRunConfigFile(t *testing.T) {
	dir := newStore(t, map[string]time.Duration{"a": 20*day + time.Hour})

	configPath := filepath.Join(dir, "pkicheck.yaml")
	require.NoError(t, ioutil.WriteFile(configPath, []byte("baseDir: "+dir+"\ncritical: 25\n"), 0644))

	code, stdout, _ := runCommand("--config", configPath)
	assert.Equal(t, 2, code)
	assert.Equal(t, "pkicheck: CRITICAL - CN=a expires in 20 days.\n", stdout)

	// flags take precedence over the file
	code, stdout, _ = runCommand("--config", configPath, "-c", "7")
	assert.Equal(t, 1, code)
	assert.Equal(t, "pkicheck: WARNING - CN=a expires in 20 days.\n", stdout)
}

func TestRunMetricsFile(t *testing.T) {
	dir := newStore(t, map[string]time.Duration{"a": 400*day + time.Hour})
	metricsFile := filepath.Join(dir, "pkicheck.prom")

	code, _, _ := runCommand("-b", dir, "--metrics-file", metricsFile)
	assert.Equal(t, 0, code)

	data, err := ioutil.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pkicheck_certificates_evaluated 1")
}
