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
	"crypto/x509"
	"encoding/pem"

	"github.com/spf13/afero"
	certutil "k8s.io/client-go/util/cert"
)

type nativeReader struct {
	fs afero.Fs
}

// NewNativeReader returns a reader parsing PEM or DER encoded certificates in process
func NewNativeReader(fs afero.Fs) Reader {
	return &nativeReader{fs: fs}
}

// Read parses the first certificate found in path
func (r *nativeReader) Read(path string) (*Record, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	c, err := parseCertificate(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &Record{
		Path:     path,
		Serial:   formatSerial(c.SerialNumber),
		Subject:  c.Subject.String(),
		NotAfter: c.NotAfter.UTC(),
	}, nil
}

func parseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block == nil {
		return x509.ParseCertificate(data)
	}

	certs, err := certutil.ParseCertsPEM(data)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}
