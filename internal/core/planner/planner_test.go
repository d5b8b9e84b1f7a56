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

package planner_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestPlanThousandSecondVideo(t *testing.T) {
	opts := planner.Options{MaxChunkDuration: sec(300), OverlapDuration: sec(60)}
	assert.Equal(t, sec(240), opts.Stride())
	assert.Equal(t, sec(30), opts.Padding())

	plan, err := planner.Plan(sec(1000), opts)
	require.NoError(t, err)

	expected := model.ChunkPlan{
		{Index: 1, Start: sec(0), End: sec(270)},
		{Index: 2, Start: sec(210), End: sec(510)},
		{Index: 3, Start: sec(450), End: sec(750)},
		{Index: 4, Start: sec(690), End: sec(990)},
		{Index: 5, Start: sec(930), End: sec(1000)},
	}
	assert.Equal(t, expected, plan)
}

func TestPlanOverlapNotLessThanMax(t *testing.T) {
	for _, overlap := range []float64{300, 301, 900} {
		_, err := planner.Plan(sec(1000), planner.Options{MaxChunkDuration: sec(300), OverlapDuration: sec(overlap)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.KindConfiguration))
		assert.Equal(t, model.KindConfiguration, model.KindOf(err))
	}
}

func TestPlanOverlapCheckedBeforeShortVideo(t *testing.T) {
	_, err := planner.Plan(sec(10), planner.Options{MaxChunkDuration: sec(300), OverlapDuration: sec(300)})
	assert.ErrorIs(t, err, model.KindConfiguration)
}

func TestPlanSplittingDisabled(t *testing.T) {
	plan, err := planner.Plan(sec(5000), planner.Options{MaxChunkDuration: 0, OverlapDuration: sec(60)})
	require.NoError(t, err)
	assert.Equal(t, model.ChunkPlan{{Index: 1, Start: 0, End: sec(5000)}}, plan)
}

func TestPlanShortVideo(t *testing.T) {
	for _, total := range []float64{1, 299.5, 300} {
		plan, err := planner.Plan(sec(total), planner.Options{MaxChunkDuration: sec(300), OverlapDuration: sec(60)})
		require.NoError(t, err)
		assert.Equal(t, model.ChunkPlan{{Index: 1, Start: 0, End: sec(total)}}, plan)
	}
}

func TestPlanRejectsInvalidInputs(t *testing.T) {
	_, err := planner.Plan(0, planner.Options{MaxChunkDuration: sec(300), OverlapDuration: sec(60)})
	assert.ErrorIs(t, err, model.ErrInvalidDuration)

	_, err = planner.Plan(sec(100), planner.Options{MaxChunkDuration: -sec(1)})
	assert.ErrorIs(t, err, model.KindConfiguration)

	_, err = planner.Plan(sec(100), planner.Options{MaxChunkDuration: sec(10), OverlapDuration: -sec(1)})
	assert.ErrorIs(t, err, model.KindConfiguration)
}

func TestPlanProperties(t *testing.T) {
	cases := []struct {
		total, max, overlap float64
	}{
		{1000, 300, 60},
		{3601, 900, 60},
		{901, 900, 60},
		{1000, 250, 1},
		{7200.5, 600, 120},
		{100, 10, 9},
		{960, 300, 60},
	}
	for _, tc := range cases {
		opts := planner.Options{MaxChunkDuration: sec(tc.max), OverlapDuration: sec(tc.overlap)}
		total := sec(tc.total)
		plan, err := planner.Plan(total, opts)
		require.NoError(t, err)
		require.NotEmpty(t, plan)

		assert.Equal(t, time.Duration(0), plan[0].Start)
		assert.Equal(t, total, plan[len(plan)-1].End)

		cores := planner.Cores(total, opts, plan)
		var covered time.Duration
		for i, r := range plan {
			assert.Equal(t, i+1, r.Index)
			assert.Greater(t, r.End, r.Start)
			assert.LessOrEqual(t, r.Duration(), opts.MaxChunkDuration)

			core := cores[i]
			covered += core.End - core.Start
			assert.Greater(t, core.End, core.Start)
			assert.LessOrEqual(t, r.Start, core.Start)
			assert.GreaterOrEqual(t, r.End, core.End)
			if i > 0 {
				assert.Equal(t, cores[i-1].End, core.Start, "cores must be contiguous")
				assert.Equal(t, max(0, cores[i-1].End-opts.Padding()), r.Start)
			}
		}
		assert.Equal(t, total, covered, "cores cover the video exactly once")
	}
}
