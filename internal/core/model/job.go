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

// Package model defines the data structures that flow through the video summary
// pipeline. Jobs and settings are immutable snapshots taken when a video is picked up,
// the tracker carries the mutable per-video state, and outcomes are what the batch
// reports once a video reaches a terminal state.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkExtension is used when the source file has no extension.
const DefaultChunkExtension = "mp4"

// Settings is the configuration snapshot a video is processed with.
type Settings struct {
	Model            string        // Model identifier passed to the generator.
	MaxChunkDuration time.Duration // Zero disables splitting.
	OverlapDuration  time.Duration // Total overlap shared by two neighbouring chunks.
	CallTimeout      time.Duration // Per call timeout for summarize and refine.
	KeepTempFiles    bool          // Leave the scratch directory in place after cleanup.
	UploadInterval   time.Duration // Pause between two uploads.
	SummaryInterval  time.Duration // Pause between two chunk summaries, chosen by model.
	RetryAttempts    int           // Attempts per chunk summary, including the first.
	RetryBackoff     time.Duration // Wait before a chunk summary retry.
}

// VideoJob identifies one input video and where its artifacts go.
type VideoJob struct {
	ID         string   // Stable id derived from the absolute source path.
	RunID      string   // Id of the batch this job belongs to.
	SourcePath string   // Path of the input video.
	Base       string   // File name without extension.
	Ext        string   // Extension without the dot, used for chunk files.
	OutputDir  string   // Where the merged and refined summaries are written.
	ScratchDir string   // <scratch_root>/<base>
	Settings   Settings // Snapshot taken at creation.
}

// NewVideoJob derives names and directories for a source video.
func NewVideoJob(runID string, sourcePath string, outputDir string, scratchRoot string, settings Settings) *VideoJob {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	name := filepath.Base(sourcePath)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if ext == "" {
		ext = DefaultChunkExtension
	}
	return &VideoJob{
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(),
		RunID:      runID,
		SourcePath: sourcePath,
		Base:       base,
		Ext:        strings.ToLower(ext),
		OutputDir:  outputDir,
		ScratchDir: filepath.Join(scratchRoot, base),
		Settings:   settings,
	}
}

// ChunkPath is the deterministic local path of a materialized chunk.
func (j *VideoJob) ChunkPath(index int) string {
	return filepath.Join(j.ScratchDir, fmt.Sprintf("chunk_%d.%s", index, j.Ext))
}

// SummaryPath is where a chunk summary is saved, keyed by the remote id.
func (j *VideoJob) SummaryPath(remoteID string) string {
	return filepath.Join(j.ScratchDir, fmt.Sprintf("summary_%s.md", remoteID))
}

func (j *VideoJob) MergedPath() string {
	return filepath.Join(j.OutputDir, j.Base+"_summary.md")
}

func (j *VideoJob) RefinedPath() string {
	return filepath.Join(j.OutputDir, j.Base+"_summary_v2.md")
}
