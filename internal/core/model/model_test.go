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

package model_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPathTransitions(t *testing.T) {
	tr := model.NewJobTracker()
	for _, s := range []model.VideoState{
		model.StatePlanned, model.StateChunked, model.StateUploaded, model.StateSummarized,
		model.StateMerged, model.StateRefined, model.StateDone,
	} {
		require.NoError(t, tr.Advance(s))
	}
	assert.Equal(t, model.StateDone, tr.State())
	assert.Len(t, tr.History(), 8)
	assert.Error(t, tr.Advance(model.StateFailed))
}

func TestSkippingAStateIsRejected(t *testing.T) {
	tr := model.NewJobTracker()
	assert.Error(t, tr.Advance(model.StateChunked))
	assert.Equal(t, model.StatePending, tr.State())
}

func TestFailKeepsFirstCause(t *testing.T) {
	tr := model.NewJobTracker()
	require.NoError(t, tr.Advance(model.StatePlanned))
	first := errors.New("first")
	tr.Fail(first)
	tr.Fail(errors.New("second"))

	assert.Equal(t, model.StateFailed, tr.State())
	assert.Equal(t, first, tr.Failure())
	assert.Equal(t, model.StatePlanned, tr.LastStateBefore())
	assert.Equal(t, []model.VideoState{model.StatePending, model.StatePlanned, model.StateFailed}, tr.History())
}

func TestFailedReachableFromEveryNonTerminalState(t *testing.T) {
	for _, s := range []model.VideoState{
		model.StatePending, model.StatePlanned, model.StateChunked, model.StateUploaded,
		model.StateSummarized, model.StateMerged, model.StateRefined,
	} {
		assert.True(t, model.CanTransition(s, model.StateFailed), s)
	}
	assert.False(t, model.CanTransition(model.StateDone, model.StateFailed))
	assert.False(t, model.CanTransition(model.StateFailed, model.StatePending))
}

func TestActiveAssets(t *testing.T) {
	tr := model.NewJobTracker()
	a := &model.RemoteAsset{ID: "a"}
	b := &model.RemoteAsset{ID: "b"}
	tr.TrackAsset(a)
	tr.TrackAsset(b)
	assert.Len(t, tr.ActiveAssets(), 2)

	a.Deactivate()
	assert.Equal(t, []*model.RemoteAsset{b}, tr.ActiveAssets())
	assert.Len(t, tr.Assets(), 2)
}

func TestBeginCleanupOnce(t *testing.T) {
	tr := model.NewJobTracker()
	assert.True(t, tr.BeginCleanup())
	assert.False(t, tr.BeginCleanup())
	assert.True(t, tr.CleanedUp())
}

func TestStageErrorMatching(t *testing.T) {
	err := model.NewStageError(model.KindUpload, "upload", "clip", model.ErrRemote)
	wrapped := fmt.Errorf("outer: %w", err)

	assert.ErrorIs(t, wrapped, model.KindUpload)
	assert.ErrorIs(t, wrapped, model.ErrRemote)
	assert.NotErrorIs(t, wrapped, model.KindSummarization)
	assert.Equal(t, model.KindUpload, model.KindOf(wrapped))
	assert.Contains(t, err.Error(), "UploadError in upload for clip")

	assert.Equal(t, model.ErrorKind(""), model.KindOf(errors.New("plain")))
	assert.Equal(t, model.KindConfiguration, model.KindOf(model.NewConfigurationError("bad %d", 1)))
}

func TestVideoJobNames(t *testing.T) {
	job := model.NewVideoJob("run", filepath.Join("videos", "Talk.MOV"), "out", ".tmp_chunks", model.Settings{})
	assert.Equal(t, "Talk", job.Base)
	assert.Equal(t, "mov", job.Ext)
	assert.Equal(t, filepath.Join(".tmp_chunks", "Talk"), job.ScratchDir)
	assert.Equal(t, filepath.Join(".tmp_chunks", "Talk", "chunk_3.mov"), job.ChunkPath(3))
	assert.Equal(t, filepath.Join(".tmp_chunks", "Talk", "summary_abc.md"), job.SummaryPath("abc"))
	assert.Equal(t, filepath.Join("out", "Talk_summary.md"), job.MergedPath())
	assert.Equal(t, filepath.Join("out", "Talk_summary_v2.md"), job.RefinedPath())

	again := model.NewVideoJob("other", filepath.Join("videos", "Talk.MOV"), "x", "y", model.Settings{})
	assert.Equal(t, job.ID, again.ID)
}

func TestVideoJobWithoutExtension(t *testing.T) {
	job := model.NewVideoJob("run", "clip", "out", "scratch", model.Settings{})
	assert.Equal(t, "clip", job.Base)
	assert.Equal(t, model.DefaultChunkExtension, job.Ext)
}

func TestBatchReportFinalize(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := model.NewBatchReport("run", start)
	r.Add(&model.VideoOutcome{Status: model.StatusSucceeded})
	r.Add(&model.VideoOutcome{Status: model.StatusFailed})
	r.Add(&model.VideoOutcome{Status: model.StatusSkipped})
	r.Finalize(start.Add(time.Minute))

	assert.Equal(t, model.BatchSummary{Total: 3, Succeeded: 1, Failed: 1, Skipped: 1}, r.Summary)
	assert.True(t, r.HasFailures())
	assert.Equal(t, start.Add(time.Minute), r.FinishedAt)
}
