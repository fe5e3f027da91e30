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

// Package cert extracts the fields the check needs from certificate files.
package cert

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jenting/pkicheck/pkg/host"
)

const (
	// Native parses certificates in process
	Native = "native"
	// Openssl shells out to the openssl binary
	Openssl = "openssl"
)

// Record holds the fields extracted from one certificate file
type Record struct {
	Path     string
	Serial   string
	Subject  string
	NotAfter time.Time
}

// Reader extracts a Record from a certificate file
type Reader interface {
	Read(path string) (*Record, error)
}

// ParseError reports a certificate file that could not be read or parsed
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse certificate %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// New returns the reader of the given kind.
// The openssl reader requires openssl in host.TrustedDirs.
func New(kind string, fs afero.Fs) (Reader, error) {
	switch kind {
	case "", Native:
		return NewNativeReader(fs), nil
	case Openssl:
		if _, err := host.LookPath("openssl", host.TrustedDirs); err != nil {
			return nil, err
		}
		return NewOpensslReader(host.TrustedDirs...), nil
	default:
		return nil, fmt.Errorf("unknown certificate reader %q", kind)
	}
}

// formatSerial renders a serial number the way `openssl x509 -serial` does:
// upper case hexadecimal with an even number of digits
func formatSerial(n *big.Int) string {
	if n == nil {
		return ""
	}
	if n.Sign() < 0 {
		return "-" + formatSerial(new(big.Int).Neg(n))
	}

	s := strings.ToUpper(n.Text(16))
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return s
}

// NormalizeSerial upper cases a hexadecimal serial and pads it to an even number of digits
func NormalizeSerial(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	if neg {
		return "-" + s
	}
	return s
}
