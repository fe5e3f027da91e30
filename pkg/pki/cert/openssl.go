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

package cert

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jenting/pkicheck/pkg/host"
)

const opensslEnddateLayout = "Jan _2 15:04:05 2006 MST"

type opensslReader struct {
	dirs []string
}

// NewOpensslReader returns a reader executing
// `openssl x509 -noout -nameopt RFC2253 -subject -serial -enddate -in <path>`.
// The binary is only searched in dirs, host.TrustedDirs if none given.
func NewOpensslReader(dirs ...string) Reader {
	if len(dirs) == 0 {
		dirs = host.TrustedDirs
	}
	return &opensslReader{dirs: dirs}
}

func (r *opensslReader) Read(path string) (*Record, error) {
	cmd, err := host.NewCommandWithStdout(r.dirs, "openssl", "x509", "-noout", "-nameopt", "RFC2253", "-subject", "-serial", "-enddate", "-in", path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	stdout, err := cmd.Output()
	if err != nil {
		logrus.Errorf("Error invoking %s: %v", cmd.Args, err)
		return nil, &ParseError{Path: path, Err: err}
	}

	record, err := parseOpensslOutput(string(stdout))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	record.Path = path

	return record, nil
}

// parseOpensslOutput processes the `openssl x509 -noout -subject -serial -enddate`
// output and returns the certificate information
func parseOpensslOutput(input string) (*Record, error) {
	record := &Record{}
	var haveSubject, haveSerial, haveEnddate bool

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "subject"):
			subject, err := parseOpensslSubject(line)
			if err != nil {
				return nil, err
			}
			record.Subject = subject
			haveSubject = true
		case strings.HasPrefix(line, "serial"):
			serial, err := parseOpensslSerial(line)
			if err != nil {
				return nil, err
			}
			record.Serial = serial
			haveSerial = true
		case strings.HasPrefix(line, "notAfter"):
			t, err := parseOpensslEnddate(line)
			if err != nil {
				return nil, err
			}
			record.NotAfter = *t
			haveEnddate = true
		}
	}

	switch {
	case !haveSubject:
		return nil, errors.New("Cannot found subject key")
	case !haveSerial:
		return nil, errors.New("Cannot found serial key")
	case !haveEnddate:
		return nil, errors.New("Cannot found notAfter key")
	}

	return record, nil
}

// parseOpensslEnddate processes the `openssl x509 -noout -enddate -in <certificate-path>`
// output and returns the expires information in UTC
func parseOpensslEnddate(input string) (*time.Time, error) {
	// notAfter=Jan  2 15:04:05 2006 GMT
	if !strings.Contains(input, "notAfter") {
		err := errors.New("Cannot found notAfter key")
		logrus.Errorf("%v", err)
		return nil, err
	}

	ss := strings.SplitN(input, "=", 2)
	if len(ss) < 2 {
		err := errors.New("Cannot found enddate")
		logrus.Errorf("%v", err)
		return nil, err
	}
	ts := strings.Join(strings.Fields(ss[1]), " ")

	t, err := time.Parse(opensslEnddateLayout, ts)
	if err != nil {
		logrus.Errorf("%v", err)
		return nil, err
	}
	if _, offset := t.Zone(); offset != 0 {
		err := errors.New("enddate is not in GMT")
		logrus.Errorf("%v", err)
		return nil, err
	}

	t = t.UTC()
	return &t, nil
}

// parseOpensslSubject processes the `openssl x509 -noout -nameopt RFC2253 -subject` output
func parseOpensslSubject(input string) (string, error) {
	// subject=CN=server,O=example
	ss := strings.SplitN(input, "=", 2)
	if len(ss) < 2 {
		err := errors.New("Cannot found subject")
		logrus.Errorf("%v", err)
		return "", err
	}

	subject := strings.TrimSpace(ss[1])
	if subject == "" {
		err := errors.New("subject is empty")
		logrus.Errorf("%v", err)
		return "", err
	}
	return subject, nil
}

// parseOpensslSerial processes the `openssl x509 -noout -serial` output
func parseOpensslSerial(input string) (string, error) {
	// serial=0A1B2C
	ss := strings.SplitN(input, "=", 2)
	if len(ss) < 2 {
		err := errors.New("Cannot found serial")
		logrus.Errorf("%v", err)
		return "", err
	}

	serial := strings.TrimSpace(ss[1])
	for _, r := range strings.TrimPrefix(serial, "-") {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			err := errors.New("serial is not hexadecimal")
			logrus.Errorf("%v", err)
			return "", err
		}
	}
	if serial == "" || serial == "-" {
		err := errors.New("serial is empty")
		logrus.Errorf("%v", err)
		return "", err
	}

	return NormalizeSerial(serial), nil
}
