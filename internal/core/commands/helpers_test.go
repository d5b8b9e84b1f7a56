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

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	out   string
	err   error
	write bool
	name  string
	args  []string
}

func (e *fakeExecutor) Execute(_ context.Context, name string, args ...string) (string, error) {
	e.name, e.args = name, args
	if e.err != nil {
		return "", e.err
	}
	if e.write {
		if err := os.WriteFile(args[len(args)-1], []byte("data"), 0o644); err != nil {
			return "", err
		}
	}
	return e.out, nil
}

func TestExtractArgs(t *testing.T) {
	args := commands.ExtractArgs("in.mp4", 210*time.Second, 510500*time.Millisecond, "out.mp4")
	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", "210.000",
		"-i", "in.mp4",
		"-t", "300.500",
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"out.mp4",
	}, args)
}

func TestFFMpegSplitterExtract(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "chunk_1.mp4")
	exec := &fakeExecutor{write: true}
	splitter := commands.NewFFMpegSplitter(exec, "")

	path, err := splitter.Extract(context.Background(), "in.mp4", 0, 10*time.Second, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.Equal(t, commands.DefaultFFMpegPath, exec.name)
}

func TestFFMpegSplitterRejectsEmptyOutputAndRange(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "chunk_1.mp4")
	splitter := commands.NewFFMpegSplitter(&fakeExecutor{}, "/usr/bin/ffmpeg")

	_, err := splitter.Extract(context.Background(), "in.mp4", 0, 10*time.Second, dest)
	assert.Error(t, err)

	_, err = splitter.Extract(context.Background(), "in.mp4", 10*time.Second, 10*time.Second, dest)
	assert.Error(t, err)
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want time.Duration
		err  bool
	}{
		{
			name: "video stream",
			out:  `{"streams":[{"codec_type":"audio","duration":"99.0"},{"codec_type":"video","duration":"1000.250"}],"format":{"duration":"1001.0"}}`,
			want: 1000250 * time.Millisecond,
		},
		{
			name: "format fallback",
			out:  `{"streams":[{"codec_type":"video","duration":"N/A"}],"format":{"duration":"42.5"}}`,
			want: 42500 * time.Millisecond,
		},
		{
			name: "no streams",
			out:  `{"format":{"duration":"12"}}`,
			want: 12 * time.Second,
		},
		{name: "no duration", out: `{"streams":[],"format":{}}`, err: true},
		{name: "garbage", out: `not json`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commands.ParseProbeOutput(tt.out)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFFProbePropagatesExecutorError(t *testing.T) {
	probe := commands.NewFFProbe(&fakeExecutor{err: errors.New("no such file")}, "")
	_, err := probe.Probe(context.Background(), "missing.mp4")
	assert.Error(t, err)
}

func TestMergeChunkSummaries(t *testing.T) {
	merged := commands.MergeChunkSummaries([]*model.ChunkSummary{
		{ChunkIndex: 3, Text: "**Part 3**\nThird."},
		{ChunkIndex: 1, Text: "## Summary for Chunk 1 (00:00 - 05:00)\n\nFirst.\n\n# Introduction\nkept"},
		{ChunkIndex: 4, Text: "Chunk 4:\n\n"},
		{ChunkIndex: 2, Text: "\n\nSecond."},
	})
	assert.Equal(t, "First.\n\n# Introduction\nkept\n\n---\n\nSecond.\n\n---\n\nThird.", merged)
}

func TestMergeChunkSummariesHeaders(t *testing.T) {
	tests := []struct {
		header   string
		stripped bool
	}{
		{"**Chunk 2 Summary**", true},
		{"Chunk 2 of 5", true},
		{"## Chunk 2 of 5 (05:00 - 10:00):", true},
		{"### Segment 7", true},
		{"__Summary of Part 1__:", true},
		{"## Part 1: Introduction", false},
		{"Part 1: Introduction", false},
		{"## Chunk 2 highlights", false},
		{"# Introduction", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			merged := commands.MergeChunkSummaries([]*model.ChunkSummary{
				{ChunkIndex: 1, Text: tt.header + "\n\nBody"},
			})
			if tt.stripped {
				assert.Equal(t, "Body", merged)
			} else {
				assert.Equal(t, tt.header+"\n\nBody", merged)
			}
		})
	}
}

func TestMergeChunkSummariesEmpty(t *testing.T) {
	assert.Equal(t, "", commands.MergeChunkSummaries(nil))
}

func TestParsePrompt(t *testing.T) {
	tmpl, err := commands.ParsePrompt("chunk", "", commands.DefaultChunkPrompt)
	require.NoError(t, err)
	assert.Equal(t, "chunk", tmpl.Name())

	_, err = commands.ParsePrompt("chunk", "{{.Video", commands.DefaultChunkPrompt)
	assert.Error(t, err)
}

func TestParseNotification(t *testing.T) {
	obj, err := commands.ParseNotification(`{"bucket":"in","name":"a/talk.MOV","contentType":"video/quicktime","generation":"7"}`)
	require.NoError(t, err)
	assert.Equal(t, "in", obj.Bucket)
	assert.Equal(t, "a/talk.MOV", obj.Name)
	assert.Equal(t, "gs://in/a/talk.MOV", obj.URI())

	_, err = commands.ParseNotification(`{"bucket":"in"}`)
	assert.Error(t, err)
	_, err = commands.ParseNotification(`{`)
	assert.Error(t, err)
}

func TestPublishObjectName(t *testing.T) {
	outcome := &model.VideoOutcome{Base: "talk"}
	assert.Equal(t, "summaries/talk/talk_summary.md",
		commands.PublishObjectName("summaries", outcome, "/tmp/out/talk_summary.md"))
	assert.Equal(t, "talk/talk_summary_v2.md",
		commands.PublishObjectName("", outcome, "out/talk_summary_v2.md"))
}
