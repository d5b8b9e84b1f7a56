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
	"errors"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/planner"
)

// ChunkPlanner turns the probed duration into the chunk plan and moves the video to
// PLANNED.
type ChunkPlanner struct {
	stageCommand
}

func NewChunkPlanner(name string) *ChunkPlanner {
	return &ChunkPlanner{stageCommand: newStageCommand(name, model.KindExtraction)}
}

func (c *ChunkPlanner) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(DurationKey).(time.Duration)
	return ok && c.stageCommand.IsExecutable(context)
}

func (c *ChunkPlanner) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	total := context.Get(DurationKey).(time.Duration)

	plan, err := planner.Plan(total, planner.Options{
		MaxChunkDuration: job.Settings.MaxChunkDuration,
		OverlapDuration:  job.Settings.OverlapDuration,
	})
	if err != nil {
		if errors.Is(err, model.KindConfiguration) {
			c.failStageAs(context, job, tracker, model.KindConfiguration, err)
		} else {
			c.failStage(context, job, tracker, err)
		}
		return
	}

	tracker.SetPlan(plan)
	if !c.advance(context, job, tracker, model.StatePlanned) {
		return
	}
	slog.InfoContext(context.GetContext(), "planned chunks", "video", job.Base, "chunks", len(plan))
	for _, r := range plan {
		slog.DebugContext(context.GetContext(), "planned chunk", "video", job.Base, "chunk", r.String())
	}
	c.Succeed(context)
}
