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

// Package probe runs one check of a PKI store: scan, read, evaluate.
package probe

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/jenting/pkicheck/pkg/check"
	"github.com/jenting/pkicheck/pkg/config"
	"github.com/jenting/pkicheck/pkg/pki/cert"
	"github.com/jenting/pkicheck/pkg/pki/expiry"
	"github.com/jenting/pkicheck/pkg/pki/scan"
	"github.com/jenting/pkicheck/pkg/plugin"
)

type Probe struct {
	config     *config.Config
	fs         afero.Fs
	clock      clock.Clock
	reader     cert.Reader
	scanner    *scan.Scanner
	calculator *expiry.Calculator

	evaluations []check.Evaluation
	failures    []check.Failure
}

// Option configures a Probe
type Option func(*Probe)

// WithFs sets the filesystem the PKI store is read from
func WithFs(fs afero.Fs) Option {
	return func(p *Probe) {
		p.fs = fs
	}
}

// WithClock sets the clock days left are computed against
func WithClock(c clock.Clock) Option {
	return func(p *Probe) {
		p.clock = c
	}
}

// WithReader overrides the certificate reader selected by the configuration
func WithReader(r cert.Reader) Option {
	return func(p *Probe) {
		p.reader = r
	}
}

// New returns a probe of the PKI store described by cfg
func New(cfg *config.Config, opts ...Option) (*Probe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Probe{
		config: cfg,
		fs:     afero.NewOsFs(),
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.reader == nil {
		reader, err := cert.New(cfg.Reader, p.fs)
		if err != nil {
			return nil, &config.Error{Err: err}
		}
		p.reader = reader
	}

	p.scanner = scan.New(p.fs, cfg.BaseDir, scan.WithPattern(cfg.Pattern))
	p.calculator = expiry.NewCalculator(p.clock)

	return p, nil
}

// Run scans the store and evaluates every certificate found.
// A *scan.ScanError is returned when the store cannot be scanned,
// the result is UNKNOWN in that case.
func (p *Probe) Run() (check.Result, error) {
	p.evaluations = []check.Evaluation{}
	p.failures = []check.Failure{}

	logrus.Infof("Checking certificates under %s", p.scanner.Root())

	files, err := p.scanner.Files()
	if err != nil {
		logrus.Errorf("Error scanning %s: %v", p.scanner.Root(), err)
		return check.Result{Status: plugin.UNKNOWN, Message: err.Error()}, err
	}
	if err := p.scanner.Warnings(); err != nil {
		logrus.Warnf("Scanned %s partially: %v", p.scanner.Root(), err)
	}

	for _, path := range files {
		record, err := p.reader.Read(path)
		if err != nil {
			var perr *cert.ParseError
			if errors.As(err, &perr) {
				err = perr.Err
			}
			p.failures = append(p.failures, check.Failure{Path: path, Err: err})
			continue
		}

		p.evaluations = append(p.evaluations, check.Evaluation{
			Record:   *record,
			DaysLeft: p.calculator.DaysLeft(record.NotAfter),
		})
	}

	result := check.Evaluate(check.Input{
		Evaluations: p.evaluations,
		Failures:    p.failures,
	}, check.Options{
		Thresholds: p.config.Thresholds(),
		Verbose:    p.config.Verbose,
	})

	logrus.Infof("Checked %d certificates, %d unreadable: %s", result.Evaluated, result.Failed, result.Status)
	return result, nil
}

// Evaluations returns the certificates evaluated by the last run
func (p *Probe) Evaluations() []check.Evaluation {
	return p.evaluations
}

// Failures returns the files the last run could not read
func (p *Probe) Failures() []check.Failure {
	return p.failures
}
