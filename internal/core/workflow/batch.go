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
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// VideoExtensions are the file extensions discovered as videos, without the dot.
var VideoExtensions = []string{"mp4", "mov", "mkv", "avi", "webm"}

// IsVideoFile reports whether path has one of VideoExtensions, ignoring case.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range VideoExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DiscoverVideos returns the absolute paths of the videos under root, sorted. A file
// is returned as is if it is a video. Hidden directories, such as the default
// scratch root, are not descended into.
func DiscoverVideos(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("input path not found: %w", err)
	}
	if !info.IsDir() {
		if !IsVideoFile(abs) {
			return nil, fmt.Errorf("%s is not a supported video type (%s)", abs, strings.Join(VideoExtensions, ", "))
		}
		return []string{abs}, nil
	}

	out := make([]string, 0)
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsVideoFile(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", abs, err)
	}
	sort.Strings(out)
	return out, nil
}

// DuplicateBases groups paths whose file names share a base name. Such videos write
// to the same summary files, so the later one overwrites the earlier.
func DuplicateBases(paths []string) map[string][]string {
	byBase := make(map[string][]string)
	for _, path := range paths {
		name := filepath.Base(path)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		byBase[base] = append(byBase[base], path)
	}
	for base, group := range byBase {
		if len(group) < 2 {
			delete(byBase, base)
		}
	}
	return byBase
}

// ScratchClaims tracks the scratch directories owned by running videos.
type ScratchClaims struct {
	mu     sync.Mutex
	claims map[string]string
}

func NewScratchClaims() *ScratchClaims {
	return &ScratchClaims{claims: make(map[string]string)}
}

// Claim takes dir for owner. It fails if another owner holds it.
func (s *ScratchClaims) Claim(dir string, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := filepath.Clean(dir)
	if holder, ok := s.claims[key]; ok && holder != owner {
		return false
	}
	s.claims[key] = owner
	return true
}

func (s *ScratchClaims) Release(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, filepath.Clean(dir))
}

// VideoRunner processes a single video.
type VideoRunner interface {
	Run(ctx context.Context, job *model.VideoJob) *model.VideoOutcome
}

// BatchRunner turns paths into jobs and runs them one after another.
type BatchRunner struct {
	runner      VideoRunner
	settings    model.Settings
	outputDir   string
	scratchRoot string
	claims      *ScratchClaims
	// OnOutcome is called after every video, in order.
	OnOutcome func(*model.VideoOutcome)
}

func NewBatchRunner(runner VideoRunner, settings model.Settings, outputDir string, scratchRoot string) *BatchRunner {
	return &BatchRunner{
		runner:      runner,
		settings:    settings,
		outputDir:   outputDir,
		scratchRoot: scratchRoot,
		claims:      NewScratchClaims(),
	}
}

// NewJob creates the job of one video for a run.
func (b *BatchRunner) NewJob(runID string, path string) *model.VideoJob {
	return model.NewVideoJob(runID, path, b.outputDir, b.scratchRoot, b.settings)
}

// RunJob runs a job unless its scratch directory is taken by another running video,
// in which case the video is skipped.
func (b *BatchRunner) RunJob(ctx context.Context, job *model.VideoJob) *model.VideoOutcome {
	if !b.claims.Claim(job.ScratchDir, job.ID) {
		slog.WarnContext(ctx, "scratch directory in use, skipping video", "video", job.Base, "dir", job.ScratchDir)
		return NewSkippedOutcome(job, fmt.Sprintf("scratch directory %s is in use", job.ScratchDir))
	}
	defer b.claims.Release(job.ScratchDir)
	return b.runner.Run(ctx, job)
}

// Run processes paths in order and reports on each. Cancelling ctx stops the batch
// before the next video; the video in progress always finishes.
func (b *BatchRunner) Run(ctx context.Context, paths []string) *model.BatchReport {
	report := model.NewBatchReport(uuid.NewString(), time.Now())
	slog.InfoContext(ctx, "starting batch", "run", report.RunID, "videos", len(paths))
	for base, group := range DuplicateBases(paths) {
		slog.WarnContext(ctx, "videos share a base name, later summaries overwrite earlier ones",
			"base", base, "paths", group, "output_dir", b.outputDir)
	}

	for i, path := range paths {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "batch interrupted", "run", report.RunID, "remaining", len(paths)-i)
			break
		}
		slog.InfoContext(ctx, "video", "index", i+1, "of", len(paths), "path", path)
		outcome := b.RunJob(ctx, b.NewJob(report.RunID, path))
		report.Add(outcome)
		if b.OnOutcome != nil {
			b.OnOutcome(outcome)
		}
	}

	report.Finalize(time.Now())
	slog.InfoContext(ctx, "batch finished", "run", report.RunID, "total", report.Summary.Total,
		"succeeded", report.Summary.Succeeded, "failed", report.Summary.Failed, "skipped", report.Summary.Skipped)
	return report
}
