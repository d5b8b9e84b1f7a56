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

// Package workflow assembles the commands into the per-video pipeline and drives it
// over a batch of videos, a watched directory or a stream of GCS notifications.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/pacing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Collaborators are the outside dependencies of the per-video pipeline.
type Collaborators struct {
	Prober       commands.DurationProber
	Splitter     commands.MediaSplitter
	Store        commands.RemoteStore
	Generator    commands.Generator
	ChunkPrompt  *template.Template
	RefinePrompt string
	UploadPacer  pacing.Pacer
	SummaryPacer pacing.Pacer
	// RetrySleep replaces time.Sleep between chunk summary attempts.
	RetrySleep func(time.Duration)
}

// CollaboratorsFromConfig wires ffmpeg, the configured chunk store and generator,
// the prompts and the pacers. Invalid prompt templates are configuration errors.
func CollaboratorsFromConfig(config *cloud.Config, clients *cloud.ServiceClients) (Collaborators, error) {
	chunkPrompt, err := commands.ParsePrompt("chunk-summary", config.PromptTemplates.ChunkSummary, commands.DefaultChunkPrompt)
	if err != nil {
		return Collaborators{}, model.NewConfigurationError("%v", err)
	}
	settings := config.Settings()
	mode := pacing.Mode(config.Pacing.Mode)
	executor := commands.NewExecutor()

	return Collaborators{
		Prober:       commands.NewFFProbe(executor, ""),
		Splitter:     commands.NewFFMpegSplitter(executor, ""),
		Store:        clients.ChunkStore,
		Generator:    clients.Generator,
		ChunkPrompt:  chunkPrompt,
		RefinePrompt: config.PromptTemplates.Refine,
		UploadPacer:  pacing.New(mode, settings.UploadInterval),
		SummaryPacer: pacing.New(mode, settings.SummaryInterval),
	}, nil
}

// VideoSummaryWorkflow runs one video through probe, plan, chunk, upload, summarize,
// merge and refine, with cleanup as a finalizer that runs exactly once whatever
// happened. Optional sinks receive the outcome afterwards.
type VideoSummaryWorkflow struct {
	cor.BaseCommand
	deps  Collaborators
	chain cor.Chain
	sinks cor.Chain
}

// NewVideoSummaryWorkflow builds the pipeline. Sink commands read the outcome from
// commands.OutcomeKey; their failures are logged and never change the outcome.
func NewVideoSummaryWorkflow(deps Collaborators, sinks ...cor.Command) (*VideoSummaryWorkflow, error) {
	if deps.Prober == nil || deps.Splitter == nil || deps.Store == nil || deps.Generator == nil {
		return nil, model.NewConfigurationError("video summary workflow needs a prober, splitter, store and generator")
	}
	if deps.ChunkPrompt == nil {
		t, err := commands.ParsePrompt("chunk-summary", "", commands.DefaultChunkPrompt)
		if err != nil {
			return nil, err
		}
		deps.ChunkPrompt = t
	}

	w := &VideoSummaryWorkflow{BaseCommand: *cor.NewBaseCommand("video-summary-workflow"), deps: deps}
	w.initializeChain()
	if len(sinks) > 0 {
		out := cor.NewBaseChain("video-outcome-sinks").ContinueOnFailure(true)
		for _, sink := range sinks {
			out.AddCommand(sink)
		}
		w.sinks = out
	}
	return w, nil
}

func (w *VideoSummaryWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewMediaProbe("media-probe", w.deps.Prober))
	out.AddCommand(commands.NewChunkPlanner("chunk-planner"))
	out.AddCommand(commands.NewMediaChunker("media-chunker", w.deps.Splitter))
	out.AddCommand(commands.NewMediaUpload("media-upload", w.deps.Store, w.deps.UploadPacer))

	summarize := commands.NewChunkSummaryCreator("chunk-summary", w.deps.Generator, w.deps.Store, w.deps.SummaryPacer, w.deps.ChunkPrompt)
	if w.deps.RetrySleep != nil {
		summarize.Sleep = w.deps.RetrySleep
	}
	out.AddCommand(summarize)

	out.AddCommand(commands.NewSummaryMerge("summary-merge"))
	out.AddCommand(commands.NewSummaryRefiner("summary-refiner", w.deps.Generator, w.deps.RefinePrompt))

	out.AddFinalizer(commands.NewMediaCleanup("media-cleanup", w.deps.Store))

	w.chain = out
}

// IsExecutable requires the job and tracker Run puts on the context.
func (w *VideoSummaryWorkflow) IsExecutable(context cor.Context) bool {
	job, tracker := commands.JobFrom(context)
	return context.GetContext() != nil && job != nil && tracker != nil
}

func (w *VideoSummaryWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run processes one video and returns its outcome. Cancellation of ctx does not
// reach the video: once started, it runs to a terminal state and is cleaned up.
func (w *VideoSummaryWorkflow) Run(ctx context.Context, job *model.VideoJob) *model.VideoOutcome {
	ctx, span := w.GetTracer().Start(context.WithoutCancel(ctx), "summarize-video",
		trace.WithAttributes(attribute.String("video", job.Base), attribute.String("video.id", job.ID)))
	defer span.End()

	started := time.Now()
	tracker := model.NewJobTracker()

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(commands.JobKey, job)
	chainCtx.Add(commands.TrackerKey, tracker)

	slog.InfoContext(ctx, "processing video", "video", job.Base, "path", job.SourcePath, "model", job.Settings.Model)
	w.Execute(chainCtx)
	finish(chainCtx, tracker)

	outcome := NewOutcome(job, tracker, started, time.Now())
	if outcome.Succeeded() {
		span.SetStatus(codes.Ok, "video summarized")
		slog.InfoContext(ctx, "video summarized", "video", job.Base, "summary", outcome.RefinedPath, "chunks", outcome.Chunks)
	} else {
		span.SetStatus(codes.Error, outcome.ErrorMessage)
		slog.ErrorContext(ctx, "video failed", "video", job.Base, "kind", outcome.ErrorKind,
			"stage", outcome.FailedStage, "error", outcome.ErrorMessage)
	}

	w.Deliver(ctx, outcome)
	return outcome
}

// Deliver hands an outcome to the sinks.
func (w *VideoSummaryWorkflow) Deliver(ctx context.Context, outcome *model.VideoOutcome) {
	if w.sinks == nil {
		return
	}
	sinkCtx := cor.NewBaseContext()
	defer sinkCtx.Close()
	sinkCtx.SetContext(ctx)
	sinkCtx.Add(commands.OutcomeKey, outcome)
	w.sinks.Execute(sinkCtx)
	for key, err := range sinkCtx.GetErrors() {
		slog.WarnContext(ctx, "outcome sink failed", "video", outcome.Base, "sink", key, "error", err)
	}
}

// finish moves a refined video to DONE. A video that stopped anywhere else without
// failing is failed with the first chain error.
func finish(chainCtx cor.Context, tracker *model.JobTracker) {
	switch state := tracker.State(); {
	case state == model.StateRefined:
		if err := tracker.Advance(model.StateDone); err != nil {
			tracker.Fail(err)
		}
	case !state.IsTerminal():
		cause := cor.FirstError(chainCtx)
		if cause == nil {
			cause = errors.New("a stage was not executable")
		}
		tracker.Fail(fmt.Errorf("pipeline stopped in state %s: %w", state, cause))
	}
}

// NewOutcome summarizes a terminal tracker.
func NewOutcome(job *model.VideoJob, tracker *model.JobTracker, started time.Time, finished time.Time) *model.VideoOutcome {
	out := &model.VideoOutcome{
		VideoID:    job.ID,
		RunID:      job.RunID,
		Path:       job.SourcePath,
		Base:       job.Base,
		Model:      job.Settings.Model,
		FinalState: tracker.State(),
		Chunks:     len(tracker.Plan()),
		StartedAt:  started,
		FinishedAt: finished,
	}
	if merged := tracker.Merged(); merged != nil {
		out.MergedPath = merged.Path
	}
	if refined := tracker.Refined(); refined != nil {
		out.RefinedPath = refined.Path
	}

	if tracker.State() == model.StateDone {
		out.Status = model.StatusSucceeded
		return out
	}
	out.Status = model.StatusFailed
	out.FailedStage = tracker.LastStateBefore()
	if err := tracker.Failure(); err != nil {
		out.ErrorKind = model.KindOf(err)
		out.ErrorMessage = err.Error()
	}
	return out
}

// NewSkippedOutcome is the outcome of a video that was not processed.
func NewSkippedOutcome(job *model.VideoJob, reason string) *model.VideoOutcome {
	now := time.Now()
	return &model.VideoOutcome{
		VideoID:      job.ID,
		RunID:        job.RunID,
		Path:         job.SourcePath,
		Base:         job.Base,
		Model:        job.Settings.Model,
		Status:       model.StatusSkipped,
		FinalState:   model.StatePending,
		ErrorMessage: reason,
		StartedAt:    now,
		FinishedAt:   now,
	}
}
