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

// Package metrics exports the result of a check run in the Prometheus
// textfile collector format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jenting/pkicheck/pkg/check"
)

type Metrics struct {
	registry   *prometheus.Registry
	daysLeft   *prometheus.GaugeVec
	notAfter   *prometheus.GaugeVec
	unreadable *prometheus.GaugeVec
	status     prometheus.Gauge
	evaluated  prometheus.Gauge
	failed     prometheus.Gauge
	duplicates prometheus.Gauge
	lastRun    prometheus.Gauge
}

// New returns metrics registered on a private registry
func New() *Metrics {
	labels := []string{"path", "serial", "subject"}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		daysLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pkicheck_certificate_days_left",
			Help: "Whole days until the certificate expires, negative once expired",
		}, labels),
		notAfter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pkicheck_certificate_not_after_seconds",
			Help: "Expiration time of the certificate in seconds since the epoch",
		}, labels),
		unreadable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pkicheck_certificate_unreadable",
			Help: "Set to 1 for certificate files which could not be parsed",
		}, []string{"path"}),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pkicheck_status",
			Help: "Plugin status of the last run (0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN)",
		}),
		evaluated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pkicheck_certificates_evaluated",
			Help: "Number of certificates evaluated by the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pkicheck_certificates_failed",
			Help: "Number of certificate files the last run could not read",
		}),
		duplicates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pkicheck_duplicate_serials",
			Help: "Number of serial numbers found in more than one file",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pkicheck_last_run_timestamp_seconds",
			Help: "Time of the last run in seconds since the epoch",
		}),
	}

	m.registry.MustRegister(m.daysLeft, m.notAfter, m.unreadable, m.status,
		m.evaluated, m.failed, m.duplicates, m.lastRun)
	return m
}

// Update records the evaluations, failures and aggregate result of one run
func (m *Metrics) Update(evaluations []check.Evaluation, failures []check.Failure, result check.Result) {
	for _, e := range evaluations {
		r := e.Record
		m.daysLeft.WithLabelValues(r.Path, r.Serial, r.Subject).Set(float64(e.DaysLeft))
		m.notAfter.WithLabelValues(r.Path, r.Serial, r.Subject).Set(float64(r.NotAfter.Unix()))
	}
	for _, f := range failures {
		m.unreadable.WithLabelValues(f.Path).Set(1)
	}

	m.status.Set(float64(result.Status))
	m.evaluated.Set(float64(result.Evaluated))
	m.failed.Set(float64(result.Failed))
	m.duplicates.Set(float64(result.Duplicates))
	m.lastRun.SetToCurrentTime()
}

// WriteFile writes the metrics to filename, atomically replacing it
func (m *Metrics) WriteFile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}

// Gatherer exposes the registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
