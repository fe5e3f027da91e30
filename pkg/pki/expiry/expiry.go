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

package expiry

import (
	"time"

	"k8s.io/apimachinery/pkg/util/clock"
)

const secondsPerDay = 24 * 60 * 60

// DaysLeft returns the whole days between now and notAfter, truncated toward zero.
// The result is negative once notAfter has passed.
func DaysLeft(notAfter, now time.Time) int {
	return int((notAfter.UTC().Unix() - now.UTC().Unix()) / secondsPerDay)
}

// Calculator computes days left against a clock
type Calculator struct {
	clock clock.Clock
}

// NewCalculator returns a calculator, using the real clock if c is nil
func NewCalculator(c clock.Clock) *Calculator {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Calculator{clock: c}
}

// DaysLeft returns the whole days between the clock's now and notAfter
func (c *Calculator) DaysLeft(notAfter time.Time) int {
	return DaysLeft(notAfter, c.clock.Now())
}
