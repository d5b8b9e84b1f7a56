// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pacing_test

import (
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/pacing"
	"github.com/stretchr/testify/assert"
)

func TestFixedPausesForDelay(t *testing.T) {
	var waits []time.Duration
	p := pacing.NewFixed(4 * time.Second)
	p.Sleep = func(d time.Duration) { waits = append(waits, d) }

	p.Pause()
	p.Pause()
	assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, waits)
	assert.Equal(t, 4*time.Second, p.Interval())
}

func TestFixedZeroDelayDoesNotSleep(t *testing.T) {
	slept := false
	p := pacing.NewFixed(0)
	p.Sleep = func(time.Duration) { slept = true }
	p.Pause()
	assert.False(t, slept)
}

func TestRateLimitedFirstPauseIsFree(t *testing.T) {
	var waits []time.Duration
	p := pacing.NewRateLimited(time.Hour)
	p.Sleep = func(d time.Duration) { waits = append(waits, d) }

	p.Pause()
	assert.Empty(t, waits)
	p.Pause()
	if assert.Len(t, waits, 1) {
		assert.InDelta(t, time.Hour.Seconds(), waits[0].Seconds(), 1)
	}
}

func TestSummaryInterval(t *testing.T) {
	flash, other := 4*time.Second, 12*time.Second
	cases := map[string]time.Duration{
		"gemini-2.0-flash":      flash,
		"gemini-2.5-Flash-Lite": flash,
		"gemini-2.5-pro":        other,
		"":                      other,
	}
	for name, want := range cases {
		assert.Equal(t, want, pacing.SummaryInterval(name, flash, other), name)
	}
}

func TestNewSelectsMode(t *testing.T) {
	assert.IsType(t, &pacing.RateLimited{}, pacing.New(pacing.ModeRate, time.Second))
	assert.IsType(t, &pacing.Fixed{}, pacing.New(pacing.ModeFixed, time.Second))
	assert.IsType(t, &pacing.Fixed{}, pacing.New("other", time.Second))
}
