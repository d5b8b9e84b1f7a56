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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaultsToRun(t *testing.T) {
	mode, opts, err := ParseArgs([]string{"--model", "gemini-2.5-pro", "--max_chunk_duration", "300", "lecture.mp4"})
	require.NoError(t, err)
	assert.Equal(t, ModeRun, mode)
	assert.Equal(t, "lecture.mp4", opts.Path)
	assert.Equal(t, "gemini-2.5-pro", opts.Model)
	assert.Equal(t, 300*time.Second, opts.MaxChunkDuration)
}

func TestParseArgsModes(t *testing.T) {
	mode, opts, err := ParseArgs([]string{"watch", "--overlap_duration", "45s", "incoming"})
	require.NoError(t, err)
	assert.Equal(t, ModeWatch, mode)
	assert.Equal(t, "incoming", opts.Path)
	assert.Equal(t, 45*time.Second, opts.OverlapDuration)

	mode, opts, err = ParseArgs([]string{"listen", "--runtime", "prod"})
	require.NoError(t, err)
	assert.Equal(t, ModeListen, mode)
	assert.Equal(t, "prod", opts.Runtime)
}

func TestParseArgsErrors(t *testing.T) {
	tests := map[string][]string{
		"missing path":     {},
		"two paths":        {"run", "a.mp4", "b.mp4"},
		"listen with path": {"listen", "videos"},
		"unknown flag":     {"--speed", "2", "a.mp4"},
		"bad duration":     {"--timeout_per_chunk", "soon", "a.mp4"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseArgs(args)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.KindConfiguration)
		})
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summarizer.toml")
	doc := `
[summary]
model = "gemini-2.5-pro"
max_chunk_duration = "600s"
overlap_duration = "30s"
output_dir = "from-file"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, opts, err := ParseArgs([]string{"--config", path, "--overlap_duration", "20", "--keep_temp_files", "talk.mp4"})
	require.NoError(t, err)
	config, err := LoadConfig(opts)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", config.Summary.Model)
	assert.Equal(t, 600*time.Second, config.Summary.MaxChunkDuration)
	assert.Equal(t, 20*time.Second, config.Summary.OverlapDuration)
	assert.Equal(t, "from-file", config.Summary.OutputDir)
	assert.True(t, config.Summary.KeepTempFiles)
	assert.Equal(t, cloud.DefaultTimeoutPerChunk, config.Summary.TimeoutPerChunk)
}

func TestLoadConfigRejectsOverlapFlag(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	_, opts, err := ParseArgs([]string{"--max_chunk_duration", "60", "--overlap_duration", "60", "talk.mp4"})
	require.NoError(t, err)
	_, err = LoadConfig(opts)
	assert.ErrorIs(t, err, model.KindConfiguration)
	assert.Equal(t, exitConfiguration, exitCode(err))
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, opts, err := ParseArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "talk.mp4"})
	require.NoError(t, err)
	_, err = LoadConfig(opts)
	assert.ErrorIs(t, err, model.KindConfiguration)
}

func TestFormatOutcome(t *testing.T) {
	ok := &model.VideoOutcome{Path: "/videos/talk.mp4", Status: model.StatusSucceeded, RefinedPath: "out/talk_summary_v2.md", Chunks: 3}
	assert.Equal(t, "OK    talk.mp4 -> out/talk_summary_v2.md (3 chunks)", FormatOutcome(ok))

	failed := &model.VideoOutcome{
		Path:         "/videos/talk.mp4",
		Status:       model.StatusFailed,
		FailedStage:  model.StateMerged,
		ErrorKind:    model.KindRefinement,
		ErrorMessage: "empty response from model",
		MergedPath:   "out/talk_summary.md",
	}
	assert.Equal(t,
		"FAIL  talk.mp4: RefinementError at MERGED: empty response from model (merged summary kept at out/talk_summary.md)",
		FormatOutcome(failed))

	skipped := &model.VideoOutcome{Path: "/videos/talk.mp4", Status: model.StatusSkipped, ErrorMessage: "already summarized"}
	assert.Equal(t, "SKIP  talk.mp4: already summarized", FormatOutcome(skipped))
}

func TestBatchExitCode(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []model.OutcomeStatus
		requested int
		want      int
	}{
		{"all succeeded", []model.OutcomeStatus{model.StatusSucceeded, model.StatusSucceeded}, 2, exitOK},
		{"empty batch", nil, 0, exitOK},
		{"one failed", []model.OutcomeStatus{model.StatusSucceeded, model.StatusFailed}, 2, exitVideoFailed},
		{"one skipped", []model.OutcomeStatus{model.StatusSucceeded, model.StatusSkipped}, 2, exitVideoFailed},
		{"interrupted", []model.OutcomeStatus{model.StatusSucceeded}, 3, exitVideoFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := model.NewBatchReport("run", time.Now())
			for _, status := range tt.statuses {
				report.Add(&model.VideoOutcome{Status: status})
			}
			report.Finalize(time.Now())
			assert.Equal(t, tt.want, BatchExitCode(report, tt.requested))
		})
	}
}

func TestWriteReport(t *testing.T) {
	report := model.NewBatchReport("run-1", time.Now())
	report.Add(&model.VideoOutcome{VideoID: "a", Status: model.StatusSucceeded})
	report.Add(&model.VideoOutcome{VideoID: "b", Status: model.StatusFailed, ErrorKind: model.KindUpload})
	report.Finalize(time.Now())
	assert.Equal(t, "2 videos: 1 succeeded, 1 failed, 0 skipped", FormatSummary(report))

	path := filepath.Join(t.TempDir(), "reports", "batch.json")
	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded model.BatchReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 1, decoded.Summary.Failed)
	require.Len(t, decoded.Items, 2)
	assert.Equal(t, model.KindUpload, decoded.Items[1].ErrorKind)
}
