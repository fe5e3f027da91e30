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

// Package scan enumerates certificate files in a PKI directory tree.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	// PKIDir is the directory scanned below the base directory
	PKIDir = "pki"
	// DefaultPattern matches certificate file names, case-sensitive
	DefaultPattern = "*.crt"
)

// ScanError reports a PKI root which cannot be scanned
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("cannot scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Option configures a Scanner
type Option func(*Scanner)

// WithPattern sets the file name pattern, see filepath.Match
func WithPattern(pattern string) Option {
	return func(s *Scanner) {
		s.pattern = pattern
	}
}

type Scanner struct {
	fs       afero.Fs
	root     string
	pattern  string
	warnings []error
}

// New returns a scanner of <baseDir>/pki
func New(fs afero.Fs, baseDir string, opts ...Option) *Scanner {
	s := &Scanner{
		fs:      fs,
		root:    filepath.Join(baseDir, PKIDir),
		pattern: DefaultPattern,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the scanned directory
func (s *Scanner) Root() string {
	return s.root
}

// Walk calls fn for every file below the root whose name matches the pattern.
// Unreadable subdirectories are skipped and recorded as warnings.
func (s *Scanner) Walk(fn func(path string) error) error {
	s.warnings = nil

	if _, err := filepath.Match(s.pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", s.pattern, err)
	}

	info, err := s.fs.Stat(s.root)
	if err != nil {
		return &ScanError{Root: s.root, Err: err}
	}
	if !info.IsDir() {
		return &ScanError{Root: s.root, Err: fmt.Errorf("not a directory")}
	}

	// afero.Walk does not follow a symlinked root, the trailing separator
	// makes the lstat of the root resolve it
	walkRoot := s.root
	if lstater, ok := s.fs.(afero.Lstater); ok {
		if li, _, err := lstater.LstatIfPossible(s.root); err == nil && li.Mode()&os.ModeSymlink != 0 {
			logrus.Debugf("Following symbolic link %s", s.root)
			walkRoot = s.root + string(filepath.Separator)
		}
	}

	return afero.Walk(s.fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return &ScanError{Root: s.root, Err: err}
			}
			logrus.Warnf("Skipping %s: %v", path, err)
			s.warnings = append(s.warnings, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		matched, err := filepath.Match(s.pattern, filepath.Base(path))
		if err != nil || !matched {
			return err
		}

		logrus.Debugf("Found certificate file %s", path)
		return fn(path)
	})
}

// Files returns the matching files sorted by path
func (s *Scanner) Files() ([]string, error) {
	files := []string{}
	err := s.Walk(func(path string) error {
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Warnings returns the errors of the skipped subdirectories of the last walk
func (s *Scanner) Warnings() error {
	return utilerrors.NewAggregate(s.warnings)
}
