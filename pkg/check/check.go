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

// Package check classifies certificates by their remaining validity and
// folds the classifications into one plugin status and message.
package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/jenting/pkicheck/pkg/pki/cert"
	"github.com/jenting/pkicheck/pkg/plugin"
)

// Classification of a single certificate
type Classification int

const (
	Valid Classification = iota
	Warning
	Critical
	Expired
)

func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Status maps the classification to its plugin status
func (c Classification) Status() plugin.Status {
	switch c {
	case Valid:
		return plugin.OK
	case Warning:
		return plugin.WARNING
	default:
		return plugin.CRITICAL
	}
}

// Thresholds in days, both bounds are inclusive
type Thresholds struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

// Validate rejects negative thresholds.
// A critical threshold above the warning threshold is allowed.
func (t Thresholds) Validate() error {
	if t.Critical < 0 {
		return errors.New("critical threshold must not be negative")
	}
	if t.Warning < 0 {
		return errors.New("warning threshold must not be negative")
	}
	return nil
}

// Classify applies the thresholds to the days left of a certificate
func Classify(daysLeft int, t Thresholds) Classification {
	switch {
	case daysLeft < 0:
		return Expired
	case daysLeft <= t.Critical:
		return Critical
	case daysLeft <= t.Warning:
		return Warning
	default:
		return Valid
	}
}

// Evaluation is a certificate with its remaining validity
type Evaluation struct {
	Record   cert.Record
	DaysLeft int
}

// Failure is a certificate file which could not be read
type Failure struct {
	Path string
	Err  error
}

// Input of one evaluation pass, in scan order
type Input struct {
	Evaluations []Evaluation
	Failures    []Failure
}

// Options of one evaluation pass
type Options struct {
	Thresholds Thresholds
	Verbose    bool
}

// Result is the aggregate of one evaluation pass
type Result struct {
	Status     plugin.Status
	Message    string
	Evaluated  int
	Failed     int
	Duplicates int
}

// Evaluate folds the evaluations and failures into the worst status.
// Every certificate is classified, a serial number shared by several
// certificates raises the status to at least WARNING.
func Evaluate(in Input, opts Options) Result {
	result := Result{Status: plugin.OK}
	fragments := []string{}

	seen := sets.NewString()
	duplicates := []string{}
	occurrences := map[string]int{}

	for _, e := range in.Evaluations {
		serial := e.Record.Serial
		occurrences[serial]++
		if seen.Has(serial) {
			if occurrences[serial] == 2 {
				duplicates = append(duplicates, serial)
			}
			logrus.Warnf("The certificate %s repeats serial %s", e.Record.Path, serial)
		}
		seen.Insert(serial)
		result.Evaluated++

		class := Classify(e.DaysLeft, opts.Thresholds)
		result.Status = plugin.Worst(result.Status, class.Status())

		if fragment := describe(e, class, opts.Verbose); fragment != "" {
			fragments = append(fragments, fragment)
		}
	}

	for _, f := range in.Failures {
		logrus.Errorf("The certificate %s is unreadable: %v", f.Path, f.Err)
		result.Failed++
		result.Status = plugin.Worst(result.Status, plugin.CRITICAL)
		reason := "unknown error"
		if f.Err != nil {
			reason = strings.TrimSuffix(f.Err.Error(), ".")
		}
		fragments = append(fragments, fmt.Sprintf("%s is unreadable: %s.", f.Path, reason))
	}

	for _, serial := range duplicates {
		result.Duplicates++
		result.Status = plugin.Worst(result.Status, plugin.WARNING)
		fragments = append(fragments, fmt.Sprintf("serial %s found in %d files.", serial, occurrences[serial]))
	}

	if len(fragments) == 0 {
		result.Message = fmt.Sprintf("%d certificates verified.", result.Evaluated)
	} else {
		result.Message = strings.Join(fragments, " ")
	}

	return result
}

func describe(e Evaluation, class Classification, verbose bool) string {
	subject := e.Record.Subject

	switch class {
	case Expired:
		logrus.Infof("The certificate %s is expiry already", subject)
		return fmt.Sprintf("%s expired %d day(s) ago.", subject, -e.DaysLeft)
	case Critical, Warning:
		logrus.Infof("The certificate %s notAfter is within the %s threshold", subject, class)
		return fmt.Sprintf("%s expires in %d days.", subject, e.DaysLeft)
	default:
		logrus.Debugf("The certificate %s is still valid for %d days", subject, e.DaysLeft)
		if verbose {
			return fmt.Sprintf("%s has %d day(s) left.", subject, e.DaysLeft)
		}
		return ""
	}
}
