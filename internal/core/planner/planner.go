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

// Package planner splits a video's timeline into overlapping chunk windows.
//
// Logic Flow:
//  1. Reject overlap >= max chunk (when splitting is enabled) as a configuration error.
//  2. Return a single window when splitting is disabled or the video already fits.
//  3. Partition [0, total] into core segments of length stride = max - overlap.
//  4. Widen each core by padding = overlap / 2 on both sides, clamped to [0, total].
//
// The windows are contiguous in core terms: core k ends exactly where core k+1 starts,
// so every instant of the video belongs to exactly one core.
package planner

import (
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// Options are the inputs that do not depend on the video.
type Options struct {
	MaxChunkDuration time.Duration // Zero disables splitting.
	OverlapDuration  time.Duration
}

// Validate checks the option combination without a video at hand.
func (o Options) Validate() error {
	if o.MaxChunkDuration < 0 {
		return model.NewConfigurationError("max chunk duration %s must not be negative", o.MaxChunkDuration)
	}
	if o.OverlapDuration < 0 {
		return model.NewConfigurationError("overlap duration %s must not be negative", o.OverlapDuration)
	}
	if o.MaxChunkDuration > 0 && o.OverlapDuration >= o.MaxChunkDuration {
		return model.NewConfigurationError("overlap duration %s must be less than max chunk duration %s",
			o.OverlapDuration, o.MaxChunkDuration)
	}
	return nil
}

// Stride is the length of each core segment.
func (o Options) Stride() time.Duration {
	return o.MaxChunkDuration - o.OverlapDuration
}

// Padding is how far each window reaches into its neighbours.
func (o Options) Padding() time.Duration {
	return o.OverlapDuration / 2
}

// Plan returns the ordered, 1-indexed windows for a video of the given length.
func Plan(total time.Duration, opts Options) (model.ChunkPlan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidDuration, total)
	}
	if opts.MaxChunkDuration == 0 || total <= opts.MaxChunkDuration {
		return model.ChunkPlan{{Index: 1, Start: 0, End: total}}, nil
	}

	stride := opts.Stride()
	padding := opts.Padding()
	plan := make(model.ChunkPlan, 0, int(total/stride)+1)
	for coreStart := time.Duration(0); coreStart < total; coreStart += stride {
		coreEnd := min(coreStart+stride, total)
		if coreEnd <= coreStart {
			break
		}
		plan = append(plan, model.ChunkRange{
			Index: len(plan) + 1,
			Start: max(0, coreStart-padding),
			End:   min(total, coreEnd+padding),
		})
	}
	return plan, nil
}

// Cores returns the non-overlapping core segment behind each window of a plan built
// with the same options.
func Cores(total time.Duration, opts Options, plan model.ChunkPlan) []model.ChunkRange {
	if len(plan) <= 1 {
		return []model.ChunkRange(plan)
	}
	stride := opts.Stride()
	out := make([]model.ChunkRange, len(plan))
	for i, r := range plan {
		start := time.Duration(i) * stride
		out[i] = model.ChunkRange{Index: r.Index, Start: start, End: min(start+stride, total)}
	}
	return out
}
