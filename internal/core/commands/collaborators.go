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

// Package commands holds the pipeline stages of a video summary. Each stage is a
// cor.Command that reads the VideoJob and JobTracker from the chain context and
// talks to the outside world only through the collaborator interfaces below.
package commands

import (
	"context"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// Chain context keys shared by the video commands.
const (
	JobKey      = "__VIDEO_JOB__"
	TrackerKey  = "__JOB_TRACKER__"
	DurationKey = "__VIDEO_DURATION__"
	OutcomeKey  = "__VIDEO_OUTCOME__"
)

// MediaSplitter cuts [start, end) of source into dest and returns the written path.
type MediaSplitter interface {
	Extract(ctx context.Context, source string, start time.Duration, end time.Duration, dest string) (string, error)
}

// DurationProber returns the playable length of a video.
type DurationProber interface {
	Probe(ctx context.Context, source string) (time.Duration, error)
}

// RemoteStore holds chunks where the model can read them.
type RemoteStore interface {
	Upload(ctx context.Context, localPath string, chunkIndex int) (*model.RemoteAsset, error)
	// Delete is best effort. Callers log the error and move on.
	Delete(ctx context.Context, asset *model.RemoteAsset) error
}

// Generator produces text for a prompt and its content. Errors wrap
// model.ErrTimeout, model.ErrRemote or model.ErrEmptyResponse.
type Generator interface {
	Generate(ctx context.Context, prompt string, content model.ContentRef) (string, error)
}

// JobFrom returns the job and tracker stored in a chain context, or nils.
func JobFrom(context cor.Context) (*model.VideoJob, *model.JobTracker) {
	job, _ := context.Get(JobKey).(*model.VideoJob)
	tracker, _ := context.Get(TrackerKey).(*model.JobTracker)
	return job, tracker
}

// stageCommand is embedded by every video stage. It owns the error kind the stage
// reports and the way a failure is recorded.
type stageCommand struct {
	cor.BaseCommand
	kind model.ErrorKind
}

func newStageCommand(name string, kind model.ErrorKind) stageCommand {
	return stageCommand{BaseCommand: *cor.NewBaseCommand(name), kind: kind}
}

// IsExecutable requires a job and a tracker that has not failed yet.
func (s *stageCommand) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	job, tracker := JobFrom(context)
	return job != nil && tracker != nil && !tracker.State().IsTerminal()
}

// failStage classifies err, moves the tracker to FAILED and records the error on the
// chain so the remaining stages are skipped.
func (s *stageCommand) failStage(context cor.Context, job *model.VideoJob, tracker *model.JobTracker, err error) {
	s.failStageAs(context, job, tracker, s.kind, err)
}

func (s *stageCommand) failStageAs(context cor.Context, job *model.VideoJob, tracker *model.JobTracker, kind model.ErrorKind, err error) {
	stageErr := model.NewStageError(kind, s.GetName(), job.Base, err)
	tracker.Fail(stageErr)
	s.Fail(context, stageErr)
}

// advance moves the tracker forward and treats a refused transition as a failure.
func (s *stageCommand) advance(context cor.Context, job *model.VideoJob, tracker *model.JobTracker, to model.VideoState) bool {
	if err := tracker.Advance(to); err != nil {
		s.failStage(context, job, tracker, err)
		return false
	}
	return true
}
