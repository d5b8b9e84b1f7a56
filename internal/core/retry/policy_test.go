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

package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(d time.Duration) {
	r.waits = append(r.waits, d)
}

func TestOnceSucceedsFirstTime(t *testing.T) {
	rec := &recorder{}
	p := retry.Once(10 * time.Second)
	p.Sleep = rec.sleep

	calls := 0
	err := p.Do(func(int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestOnceRetriesExactlyOnce(t *testing.T) {
	rec := &recorder{}
	p := retry.Once(10 * time.Second)
	p.Sleep = rec.sleep
	boom := errors.New("boom")

	var attempts []int
	err := p.Do(func(attempt int) error {
		attempts = append(attempts, attempt)
		return boom
	})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{10 * time.Second}, rec.waits)
}

func TestOnceRecoversOnRetry(t *testing.T) {
	rec := &recorder{}
	retried := 0
	p := retry.Once(10 * time.Second)
	p.Sleep = rec.sleep
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		retried++
		assert.Equal(t, 1, attempt)
		assert.Equal(t, 10*time.Second, wait)
	}

	calls := 0
	err := p.Do(func(int) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retried)
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	err := retry.Policy{}.Do(func(int) error {
		calls++
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
