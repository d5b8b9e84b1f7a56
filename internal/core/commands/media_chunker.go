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
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// MediaChunker materializes every planned range under the video's scratch
// directory. The first failed extraction fails the video; there is no retry.
type MediaChunker struct {
	stageCommand
	splitter MediaSplitter
}

func NewMediaChunker(name string, splitter MediaSplitter) *MediaChunker {
	return &MediaChunker{stageCommand: newStageCommand(name, model.KindExtraction), splitter: splitter}
}

func (c *MediaChunker) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	ctx := context.GetContext()

	// Leftovers of an earlier run for the same base name are discarded.
	if err := os.RemoveAll(job.ScratchDir); err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to clear scratch directory %s: %w", job.ScratchDir, err))
		return
	}
	if err := os.MkdirAll(job.ScratchDir, 0o755); err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to create scratch directory %s: %w", job.ScratchDir, err))
		return
	}

	plan := tracker.Plan()
	for _, r := range plan {
		dest := job.ChunkPath(r.Index)
		path, err := c.splitter.Extract(ctx, job.SourcePath, r.Start, r.End, dest)
		if err != nil {
			c.failStage(context, job, tracker, fmt.Errorf("failed to extract %s: %w", r, err))
			return
		}
		tracker.AddArtifact(&model.ChunkArtifact{Range: r, Path: path})
		slog.InfoContext(ctx, "extracted chunk", "video", job.Base, "chunk", r.Index, "of", len(plan), "path", path)
	}

	if !c.advance(context, job, tracker, model.StateChunked) {
		return
	}
	c.Succeed(context)
}
