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

package workflow

import (
	"log/slog"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// DownloadDirName is the directory under the scratch root notified videos are
// downloaded to.
const DownloadDirName = ".downloads"

// VideoFileSummary runs the local video found in CtxIn through the batch runner and
// stores the outcome under commands.OutcomeKey. A failed video is an outcome, not a
// chain error, so the triggering message is not redelivered.
type VideoFileSummary struct {
	cor.BaseCommand
	batch     *BatchRunner
	seen      CompletionChecker
	runID     string
	OnOutcome func(*model.VideoOutcome)
}

func NewVideoFileSummary(name string, batch *BatchRunner, seen CompletionChecker) *VideoFileSummary {
	return &VideoFileSummary{BaseCommand: *cor.NewBaseCommand(name), batch: batch, seen: seen, runID: uuid.NewString()}
}

func (c *VideoFileSummary) IsExecutable(context cor.Context) bool {
	path, ok := context.Get(c.GetInputParam()).(string)
	return ok && path != "" && context.GetContext() != nil
}

func (c *VideoFileSummary) Execute(context cor.Context) {
	ctx := context.GetContext()
	path := context.Get(c.GetInputParam()).(string)
	job := c.batch.NewJob(c.runID, path)

	var outcome *model.VideoOutcome
	if c.seen != nil {
		done, err := c.seen.IsCompleted(ctx, job.ID)
		if err != nil {
			slog.WarnContext(ctx, "failed to check completed videos", "video", job.Base, "error", err)
		}
		if done {
			slog.InfoContext(ctx, "video already summarized", "video", job.Base)
			outcome = NewSkippedOutcome(job, "already summarized")
		}
	}
	if outcome == nil {
		outcome = c.batch.RunJob(ctx, job)
	}

	context.Add(commands.OutcomeKey, outcome)
	context.Add(c.GetOutputParam(), outcome)
	if c.OnOutcome != nil {
		c.OnOutcome(outcome)
	}
	c.Succeed(context)
}

// MediaTriggerWorkflow handles one GCS notification: the object is decoded, checked
// to be a video, downloaded under the scratch root and summarized. The download is
// removed when the message's chain context is closed.
type MediaTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
	// Summary is the final step, exposed to attach an outcome callback.
	Summary *VideoFileSummary
}

func NewMediaTriggerWorkflow(
	storageClient *storage.Client,
	batch *BatchRunner,
	seen CompletionChecker,
	scratchRoot string) *MediaTriggerWorkflow {

	out := &MediaTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-trigger-workflow"),
		Summary:     NewVideoFileSummary("video-file-summary", batch, seen),
	}

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewMediaTriggerToGCSObject("media-trigger-to-gcs-object", VideoExtensions))
	chain.AddCommand(commands.NewGCSToTempFile("gcs-to-temp-file", storageClient, filepath.Join(scratchRoot, DownloadDirName)))
	chain.AddCommand(out.Summary)
	out.chain = chain
	return out
}

func (m *MediaTriggerWorkflow) IsExecutable(context cor.Context) bool {
	return m.chain.IsExecutable(context)
}

func (m *MediaTriggerWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}
