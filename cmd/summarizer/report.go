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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/workflow"
)

// RunBatch processes the file or directory in opts.Path and returns the exit code.
func RunBatch(ctx context.Context, app *App, opts *Options, stdout io.Writer) int {
	paths, err := workflow.DiscoverVideos(opts.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "no videos found in %s\n", opts.Path)
	}

	app.Batch.OnOutcome = func(outcome *model.VideoOutcome) {
		app.Outcomes.Add(outcome)
		fmt.Fprintln(stdout, FormatOutcome(outcome))
	}
	report := app.Batch.Run(ctx, paths)
	fmt.Fprintln(stdout, FormatSummary(report))

	code := BatchExitCode(report, len(paths))
	if opts.Report != "" {
		if err := WriteReport(opts.Report, report); err != nil {
			slog.ErrorContext(ctx, "failed to write report", "path", opts.Report, "error", err)
			fmt.Fprintln(os.Stderr, err)
			code = exitVideoFailed
		}
	}
	return code
}

// BatchExitCode is exitVideoFailed when a requested video has no summary: it failed,
// it was skipped, or the batch stopped before reaching it.
func BatchExitCode(report *model.BatchReport, requested int) int {
	if report.HasFailures() || len(report.Items) < requested {
		return exitVideoFailed
	}
	for _, it := range report.Items {
		if it.Status == model.StatusSkipped {
			return exitVideoFailed
		}
	}
	return exitOK
}

// FormatOutcome is the one line printed for a video.
func FormatOutcome(o *model.VideoOutcome) string {
	name := filepath.Base(o.Path)
	switch o.Status {
	case model.StatusSucceeded:
		return fmt.Sprintf("OK    %s -> %s (%d chunks)", name, o.RefinedPath, o.Chunks)
	case model.StatusSkipped:
		return fmt.Sprintf("SKIP  %s: %s", name, o.ErrorMessage)
	default:
		line := fmt.Sprintf("FAIL  %s: %s at %s: %s", name, o.ErrorKind, o.FailedStage, o.ErrorMessage)
		if o.MergedPath != "" {
			line += fmt.Sprintf(" (merged summary kept at %s)", o.MergedPath)
		}
		return line
	}
}

// FormatSummary is the closing line of a batch.
func FormatSummary(r *model.BatchReport) string {
	return fmt.Sprintf("%d videos: %d succeeded, %d failed, %d skipped",
		r.Summary.Total, r.Summary.Succeeded, r.Summary.Failed, r.Summary.Skipped)
}

// WriteReport writes the batch report as indented JSON.
func WriteReport(path string, r *model.BatchReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
