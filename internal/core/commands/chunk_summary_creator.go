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
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/pacing"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/retry"
)

// ChunkSummaryCreator asks the generator for a summary of every uploaded chunk.
//
// Logic Flow:
//  1. Chunks are summarized in index order, pausing between two chunks.
//  2. Each call is bounded by the per call timeout and retried by the job's policy.
//  3. A summary is saved as summary_<remote id>.md in the scratch directory and the
//     chunk's remote asset is deleted right away.
//  4. A chunk whose attempts are exhausted fails the video with a SummarizationError.
type ChunkSummaryCreator struct {
	stageCommand
	generator Generator
	store     RemoteStore
	pacer     pacing.Pacer
	template  *template.Template
	// Sleep is the retry wait, replaced in tests.
	Sleep func(time.Duration)
}

func NewChunkSummaryCreator(
	name string,
	generator Generator,
	store RemoteStore,
	pacer pacing.Pacer,
	template *template.Template) *ChunkSummaryCreator {

	return &ChunkSummaryCreator{
		stageCommand: newStageCommand(name, model.KindSummarization),
		generator:    generator,
		store:        store,
		pacer:        pacer,
		template:     template,
		Sleep:        time.Sleep,
	}
}

func (c *ChunkSummaryCreator) policy(ctx context.Context, job *model.VideoJob, asset *model.RemoteAsset) retry.Policy {
	return retry.Policy{
		MaxAttempts: job.Settings.RetryAttempts,
		Backoff:     retry.Fixed(job.Settings.RetryBackoff),
		Sleep:       c.Sleep,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			slog.WarnContext(ctx, "chunk summary failed, retrying", "video", job.Base,
				"chunk", asset.ChunkIndex, "attempt", attempt, "wait", wait, "error", err)
		},
	}
}

func (c *ChunkSummaryCreator) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	ctx := context.GetContext()
	plan := tracker.Plan()

	assets := tracker.Assets()
	for i, asset := range assets {
		if i > 0 && c.pacer != nil {
			c.pacer.Pause()
		}

		data := PromptData{Video: job.Base, Chunk: asset.ChunkIndex, Chunks: len(plan)}
		if asset.ChunkIndex >= 1 && asset.ChunkIndex <= len(plan) {
			r := plan[asset.ChunkIndex-1]
			data.Start, data.End = r.Start.String(), r.End.String()
		}
		prompt, err := renderPrompt(c.template, data)
		if err != nil {
			c.failStage(context, job, tracker, err)
			return
		}

		var text string
		err = c.policy(ctx, job, asset).Do(func(int) error {
			var genErr error
			text, genErr = c.generate(ctx, job, prompt, asset)
			return genErr
		})
		if err != nil {
			c.failStage(context, job, tracker, fmt.Errorf("chunk %d: %w", asset.ChunkIndex, err))
			return
		}

		path := job.SummaryPath(asset.ID)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			c.failStage(context, job, tracker, fmt.Errorf("failed to save summary of chunk %d: %w", asset.ChunkIndex, err))
			return
		}
		tracker.AddSummary(&model.ChunkSummary{ChunkIndex: asset.ChunkIndex, RemoteID: asset.ID, Text: text, Path: path})
		slog.InfoContext(ctx, "summarized chunk", "video", job.Base, "chunk", asset.ChunkIndex, "of", len(assets), "path", path)

		_ = DeleteAsset(ctx, c.store, job, asset)
	}

	if !c.advance(context, job, tracker, model.StateSummarized) {
		return
	}
	c.Succeed(context)
}

func (c *ChunkSummaryCreator) generate(ctx context.Context, job *model.VideoJob, prompt string, asset *model.RemoteAsset) (string, error) {
	callCtx, cancel := withTimeout(ctx, job.Settings.CallTimeout)
	defer cancel()
	return c.generator.Generate(callCtx, prompt, model.ContentRef{Asset: asset})
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// DeleteAsset removes an asset from the remote store. The asset is marked inactive
// whatever the outcome; a failed delete is logged and returned as a CleanupError.
func DeleteAsset(ctx context.Context, store RemoteStore, job *model.VideoJob, asset *model.RemoteAsset) error {
	if !asset.Active {
		return nil
	}
	err := store.Delete(ctx, asset)
	asset.Deactivate()
	if err != nil {
		cleanupErr := model.NewStageError(model.KindCleanup, "delete-asset", job.Base, err)
		slog.WarnContext(ctx, "failed to delete remote asset", "video", job.Base, "remote", asset.Name, "error", cleanupErr)
		return cleanupErr
	}
	slog.DebugContext(ctx, "deleted remote asset", "video", job.Base, "remote", asset.Name)
	return nil
}
