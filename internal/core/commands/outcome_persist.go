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

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// OutcomeRecorder stores a video outcome.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome *model.VideoOutcome) error
}

// CompletionMarker remembers videos that were summarized successfully.
type CompletionMarker interface {
	MarkCompleted(ctx context.Context, videoID string) error
}

// OutcomePersist hands the outcome of a video to a recorder.
type OutcomePersist struct {
	cor.BaseCommand
	recorder OutcomeRecorder
}

func NewOutcomePersist(name string, recorder OutcomeRecorder) *OutcomePersist {
	return &OutcomePersist{BaseCommand: *cor.NewBaseCommand(name), recorder: recorder}
}

func (c *OutcomePersist) IsExecutable(context cor.Context) bool {
	outcome, ok := context.Get(OutcomeKey).(*model.VideoOutcome)
	return ok && outcome != nil && context.GetContext() != nil
}

func (c *OutcomePersist) Execute(context cor.Context) {
	outcome := context.Get(OutcomeKey).(*model.VideoOutcome)
	if err := c.recorder.Record(context.GetContext(), outcome); err != nil {
		c.Fail(context, fmt.Errorf("failed to record outcome of %s: %w", outcome.Base, err))
		return
	}
	slog.DebugContext(context.GetContext(), "recorded outcome", "video", outcome.Base, "status", outcome.Status)
	c.Succeed(context)
}

// MarkCompleted flags a successfully summarized video so watch and listen modes skip
// it next time.
type MarkCompleted struct {
	cor.BaseCommand
	marker CompletionMarker
}

func NewMarkCompleted(name string, marker CompletionMarker) *MarkCompleted {
	return &MarkCompleted{BaseCommand: *cor.NewBaseCommand(name), marker: marker}
}

func (c *MarkCompleted) IsExecutable(context cor.Context) bool {
	outcome, ok := context.Get(OutcomeKey).(*model.VideoOutcome)
	return ok && outcome != nil && outcome.Succeeded() && context.GetContext() != nil
}

func (c *MarkCompleted) Execute(context cor.Context) {
	outcome := context.Get(OutcomeKey).(*model.VideoOutcome)
	if err := c.marker.MarkCompleted(context.GetContext(), outcome.VideoID); err != nil {
		c.Fail(context, fmt.Errorf("failed to mark %s completed: %w", outcome.Base, err))
		return
	}
	c.Succeed(context)
}
