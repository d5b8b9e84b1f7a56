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

// Package pacing spaces out consecutive remote calls. A Pacer is invoked between two
// calls; the pipeline never pauses after its last call. Pauses block and are not
// cancellable.
package pacing

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next remote call may be issued.
type Pacer interface {
	Pause()
	// Interval is the nominal spacing, used for logging.
	Interval() time.Duration
}

// Fixed sleeps the same delay on every pause.
type Fixed struct {
	Delay time.Duration
	Sleep func(time.Duration)
}

// NewFixed returns a pacer that always waits delay.
func NewFixed(delay time.Duration) *Fixed {
	return &Fixed{Delay: delay, Sleep: time.Sleep}
}

func (f *Fixed) Pause() {
	if f.Delay <= 0 {
		return
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(f.Delay)
}

func (f *Fixed) Interval() time.Duration {
	return f.Delay
}

// RateLimited spaces call starts at least every interval apart. Unlike Fixed, time
// already spent in the call counts towards the wait.
type RateLimited struct {
	limiter  *rate.Limiter
	interval time.Duration
	Sleep    func(time.Duration)
}

// NewRateLimited builds a token bucket pacer with a burst of one.
func NewRateLimited(interval time.Duration) *RateLimited {
	return &RateLimited{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		Sleep:    time.Sleep,
	}
}

func (r *RateLimited) Pause() {
	res := r.limiter.Reserve()
	if !res.OK() {
		return
	}
	if d := res.Delay(); d > 0 {
		r.Sleep(d)
	}
}

func (r *RateLimited) Interval() time.Duration {
	return r.interval
}

// Mode selects the pacer implementation.
type Mode string

const (
	ModeFixed Mode = "fixed"
	ModeRate  Mode = "rate"
)

// New builds a pacer of the given mode. Unknown modes fall back to fixed.
func New(mode Mode, interval time.Duration) Pacer {
	if mode == ModeRate && interval > 0 {
		return NewRateLimited(interval)
	}
	return NewFixed(interval)
}

// SummaryInterval picks the pause between chunk summaries. Flash models get the
// shorter delay.
func SummaryInterval(modelName string, flash time.Duration, other time.Duration) time.Duration {
	if strings.Contains(strings.ToLower(modelName), "flash") {
		return flash
	}
	return other
}
