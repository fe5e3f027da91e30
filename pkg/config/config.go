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

package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/jenting/pkicheck/pkg/check"
	"github.com/jenting/pkicheck/pkg/pki/cert"
	"github.com/jenting/pkicheck/pkg/pki/scan"
)

const (
	DefaultCritical = 7
	DefaultWarning  = 30
	DefaultLogLevel = "warning"
)

// Error reports an invalid or missing setting
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config contains the settings of one check run
type Config struct {
	BaseDir     string `json:"baseDir,omitempty"`
	Critical    int    `json:"critical"`
	Warning     int    `json:"warning"`
	Verbose     bool   `json:"verbose,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Reader      string `json:"reader,omitempty"`
	MetricsFile string `json:"metricsFile,omitempty"`
	LogLevel    string `json:"logLevel,omitempty"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Critical: DefaultCritical,
		Warning:  DefaultWarning,
		Pattern:  scan.DefaultPattern,
		Reader:   cert.Native,
		LogLevel: DefaultLogLevel,
	}
}

// LoadFile reads a YAML configuration file on top of the defaults
func LoadFile(path string) (*Config, error) {
	logrus.Infof("Loading configuration %s", path)

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("cannot read configuration: %w", err)}
	}

	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, &Error{Err: fmt.Errorf("cannot parse configuration %s: %w", path, err)}
	}
	return c, nil
}

// Thresholds returns the day thresholds
func (c *Config) Thresholds() check.Thresholds {
	return check.Thresholds{Critical: c.Critical, Warning: c.Warning}
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return &Error{Err: errors.New("base directory is required")}
	}
	if err := c.Thresholds().Validate(); err != nil {
		return &Error{Err: err}
	}
	if c.Pattern == "" {
		return &Error{Err: errors.New("pattern must not be empty")}
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return &Error{Err: fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)}
	}
	switch c.Reader {
	case cert.Native, cert.Openssl:
	default:
		return &Error{Err: fmt.Errorf("unknown certificate reader %q", c.Reader)}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &Error{Err: err}
	}
	if c.Critical > c.Warning {
		logrus.Warnf("Critical threshold %d is above warning threshold %d, certificates never warn", c.Critical, c.Warning)
	}
	return nil
}
