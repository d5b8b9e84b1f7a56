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

// Package retry provides a bounded retry policy applied around remote calls.
package retry

import (
	"fmt"
	"time"
)

// Backoff returns how long to wait before the given retry (1 for the first retry).
type Backoff func(retry int) time.Duration

// Fixed waits the same delay before every retry.
func Fixed(delay time.Duration) Backoff {
	return func(int) time.Duration {
		return delay
	}
}

// Policy bounds how often an operation is attempted and how long to wait in between.
// The waits are plain blocking sleeps and do not observe cancellation.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	// Sleep replaces time.Sleep, mainly for tests.
	Sleep func(time.Duration)
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Once is the policy used for chunk summaries: one retry after a fixed delay.
func Once(delay time.Duration) Policy {
	return Policy{MaxAttempts: 2, Backoff: Fixed(delay)}
}

// ExhaustedError is returned when every attempt failed. It wraps the last error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs op until it succeeds or MaxAttempts is reached. op receives the 1-based
// attempt number.
func (p Policy) Do(op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if last = op(attempt); last == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, wait)
		}
		if wait > 0 {
			sleep(wait)
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}
