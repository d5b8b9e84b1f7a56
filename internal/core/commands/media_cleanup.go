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

package commands

import (
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// MediaCleanup releases everything a video holds. It runs as a chain finalizer and
// does its work at most once per tracker.
//
// Logic Flow:
//  1. Every asset still active is deleted, best effort. Assets are marked inactive
//     even when the delete fails, and the failure is logged as a CleanupError.
//  2. Once no asset is active, the scratch directory is removed unless the job keeps
//     its temp files.
//
// Cleanup never records a chain error, so it cannot mask the video's outcome.
type MediaCleanup struct {
	cor.BaseCommand
	store RemoteStore
}

func NewMediaCleanup(name string, store RemoteStore) *MediaCleanup {
	return &MediaCleanup{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

// IsExecutable only needs a job and a tracker; a failed video is cleaned up too.
func (c *MediaCleanup) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	job, tracker := JobFrom(context)
	return job != nil && tracker != nil
}

func (c *MediaCleanup) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	ctx := context.GetContext()
	if !tracker.BeginCleanup() {
		slog.DebugContext(ctx, "cleanup already done", "video", job.Base)
		return
	}

	failed := 0
	for _, asset := range tracker.ActiveAssets() {
		if err := DeleteAsset(ctx, c.store, job, asset); err != nil {
			failed++
		}
	}
	if remaining := len(tracker.ActiveAssets()); remaining > 0 {
		slog.ErrorContext(ctx, "remote assets still active after cleanup", "video", job.Base, "count", remaining)
		failed += remaining
	}

	if job.Settings.KeepTempFiles {
		slog.InfoContext(ctx, "temporary files kept", "video", job.Base, "dir", job.ScratchDir)
	} else if err := os.RemoveAll(job.ScratchDir); err != nil {
		failed++
		cleanupErr := model.NewStageError(model.KindCleanup, c.GetName(), job.Base, err)
		slog.WarnContext(ctx, "failed to remove scratch directory", "video", job.Base, "dir", job.ScratchDir, "error", cleanupErr)
	} else {
		slog.DebugContext(ctx, "removed scratch directory", "video", job.Base, "dir", job.ScratchDir)
	}

	if failed > 0 {
		c.GetErrorCounter().Add(ctx, int64(failed))
		return
	}
	c.Succeed(context)
}
