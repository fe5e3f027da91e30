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

// Package certtest generates throwaway certificates for tests.
package certtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// Template describes the certificate to generate
type Template struct {
	CommonName   string
	Organization string
	Serial       int64
	NotAfter     time.Time
}

// DER returns a self-signed DER encoded certificate built from tmpl
func DER(t testing.TB, tmpl Template) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	subject := pkix.Name{CommonName: tmpl.CommonName}
	if tmpl.Organization != "" {
		subject.Organization = []string{tmpl.Organization}
	}

	notBefore := tmpl.NotAfter.AddDate(-1, 0, 0)
	c := &x509.Certificate{
		SerialNumber:          big.NewInt(tmpl.Serial),
		Subject:               subject,
		NotBefore:             notBefore,
		NotAfter:              tmpl.NotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, c, c, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return der
}

// PEM returns a self-signed PEM encoded certificate built from tmpl
func PEM(t testing.TB, tmpl Template) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: DER(t, tmpl)})
}

// WriteFile stores a PEM encoded certificate at path in fs
func WriteFile(t testing.TB, fs afero.Fs, path string, tmpl Template) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, PEM(t, tmpl), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
