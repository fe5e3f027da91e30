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

// Package plugin implements the monitoring plugin output convention:
// one status line on stdout and a tri-state exit code.
package plugin

import (
	"fmt"
	"io"
	"strings"
)

// Status is the state reported to the monitoring system
type Status int

const (
	OK Status = iota
	WARNING
	CRITICAL
	UNKNOWN
)

var statusNames = map[Status]string{
	OK:       "OK",
	WARNING:  "WARNING",
	CRITICAL: "CRITICAL",
	UNKNOWN:  "UNKNOWN",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[UNKNOWN]
}

// ExitCode maps the status to the plugin exit code
func ExitCode(s Status) int {
	switch s {
	case OK, WARNING, CRITICAL:
		return int(s)
	default:
		return int(UNKNOWN)
	}
}

// Worst returns the more severe of a and b
// UNKNOWN ranks above CRITICAL.
func Worst(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// Format renders "<name>: <STATUS> - <message>" on a single line
func Format(name string, s Status, message string) string {
	message = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(message)
	return fmt.Sprintf("%s: %s - %s", name, s, strings.TrimSpace(message))
}

// Plugin collects the state of one check run and prints it once
type Plugin struct {
	name    string
	out     io.Writer
	status  Status
	message string
	set     bool
	done    bool
}

// New returns a plugin writing its status line to out
func New(name string, out io.Writer) *Plugin {
	return &Plugin{name: name, out: out}
}

// SetState records the state, keeping the most severe one seen so far
func (p *Plugin) SetState(s Status, message string) {
	if p.set && s < p.status {
		return
	}
	p.status = s
	p.message = message
	p.set = true
}

// Status returns the current state
func (p *Plugin) Status() Status {
	if !p.set {
		return UNKNOWN
	}
	return p.status
}

// IsSet reports whether a state was recorded
func (p *Plugin) IsSet() bool {
	return p.set
}

// Done prints the status line and returns the exit code.
// Only the first call prints.
func (p *Plugin) Done() int {
	status, message := p.Status(), p.message
	if !p.set {
		message = "no result"
	}

	if !p.done {
		fmt.Fprintln(p.out, Format(p.name, status, message))
		p.done = true
	}
	return ExitCode(status)
}
