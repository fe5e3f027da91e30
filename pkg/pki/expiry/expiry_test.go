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
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/clock"
)

func TestDaysLeft(t *testing.T) {
	now := time.Date(2000, time.January, 02, 03, 04, 05, 06, time.UTC)

	tests := []struct {
		name     string
		notAfter time.Time
		expect   int
	}{
		{
			name:     "expired long ago",
			notAfter: time.Date(1960, time.May, 12, 02, 29, 00, 00, time.UTC),
			expect:   -14479,
		},
		{
			name:     "expired less than a day ago",
			notAfter: now.Add(-23 * time.Hour),
			expect:   0,
		},
		{
			name:     "expired three days ago",
			notAfter: now.Add(-3*24*time.Hour - time.Minute),
			expect:   -3,
		},
		{
			name:     "expires later today",
			notAfter: now.Add(time.Hour),
			expect:   0,
		},
		{
			name:     "one second short of a day",
			notAfter: now.Add(24*time.Hour - time.Second),
			expect:   0,
		},
		{
			name:     "exactly one day",
			notAfter: now.Add(24 * time.Hour),
			expect:   1,
		},
		{
			name:     "across a leap day",
			notAfter: time.Date(2000, time.March, 1, 03, 04, 05, 06, time.UTC),
			expect:   59,
		},
		{
			name:     "far future",
			notAfter: time.Date(9999, time.December, 31, 23, 59, 59, 00, time.UTC),
			expect:   2921938,
		},
		{
			name:     "other zone is the same instant",
			notAfter: time.Date(2000, time.January, 12, 05, 04, 05, 06, time.FixedZone("CEST", 2*60*60)),
			expect:   10,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := DaysLeft(tt.notAfter, now)
			if got != tt.expect {
				t.Errorf("got %d is not equals to expected %d", got, tt.expect)
			}
		})
	}
}

func TestCalculator(t *testing.T) {
	now := time.Date(2024, time.February, 28, 12, 0, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(now)
	c := NewCalculator(fakeClock)

	notAfter := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	if got := c.DaysLeft(notAfter); got != 2 {
		t.Errorf("got %d is not equals to expected 2", got)
	}

	fakeClock.Step(36 * time.Hour)
	if got := c.DaysLeft(notAfter); got != 0 {
		t.Errorf("got %d is not equals to expected 0", got)
	}

	fakeClock.Step(48 * time.Hour)
	if got := c.DaysLeft(notAfter); got != -1 {
		t.Errorf("got %d is not equals to expected -1", got)
	}
}
