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

// SummaryRefiner rewrites the merged summary into the final document. It makes a
// single attempt under the per call timeout; a failure leaves the merged file in
// place.
type SummaryRefiner struct {
	stageCommand
	generator Generator
	prompt    string
}

func NewSummaryRefiner(name string, generator Generator, prompt string) *SummaryRefiner {
	if prompt == "" {
		prompt = DefaultRefinePrompt
	}
	return &SummaryRefiner{stageCommand: newStageCommand(name, model.KindRefinement), generator: generator, prompt: prompt}
}

func (c *SummaryRefiner) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	merged := tracker.Merged()
	if merged == nil {
		c.failStage(context, job, tracker, fmt.Errorf("no merged summary to refine"))
		return
	}

	callCtx, cancel := withTimeout(context.GetContext(), job.Settings.CallTimeout)
	refined, err := c.generator.Generate(callCtx, c.prompt, model.ContentRef{Text: merged.Text})
	cancel()
	if err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to refine %s: %w", merged.Path, err))
		return
	}

	path := job.RefinedPath()
	if err := os.WriteFile(path, []byte(refined), 0o644); err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to write refined summary %s: %w", path, err))
		return
	}
	tracker.SetRefined(&model.SummaryDocument{Path: path, Text: refined})
	slog.InfoContext(context.GetContext(), "refined summary written", "video", job.Base, "path", path)

	if !c.advance(context, job, tracker, model.StateRefined) {
		return
	}
	c.Succeed(context)
}
