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

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// MediaProbe reads the source duration. A video whose length cannot be read fails
// with an ExtractionError.
type MediaProbe struct {
	stageCommand
	prober DurationProber
}

func NewMediaProbe(name string, prober DurationProber) *MediaProbe {
	return &MediaProbe{stageCommand: newStageCommand(name, model.KindExtraction), prober: prober}
}

func (c *MediaProbe) Execute(context cor.Context) {
	job, tracker := JobFrom(context)

	duration, err := c.prober.Probe(context.GetContext(), job.SourcePath)
	if err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to probe %s: %w", job.SourcePath, err))
		return
	}
	if duration <= 0 {
		c.failStage(context, job, tracker, fmt.Errorf("%w: %s for %s", model.ErrInvalidDuration, duration, job.SourcePath))
		return
	}

	slog.InfoContext(context.GetContext(), "probed video", "video", job.Base, "duration", duration)
	context.Add(DurationKey, duration)
	c.Succeed(context)
}
