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
	"regexp"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// SummarySeparator joins chunk summaries in the merged document.
const SummarySeparator = "\n\n---\n\n"

// chunkFraming matches text that only names a chunk: "Summary for Chunk 2 (00:00 - 05:00)",
// "**Chunk 2 Summary**", "Chunk 2 of 5:". Anything else on the line makes it content.
const chunkFraming = `(\*\*|__)?\s*(summary\s+(for|of)\s+)?(chunk|part|segment)\s+\d+(\s+of\s+\d+)?(\s+summary)?` +
	`\s*(\([^)]*\))?\s*[:.\-]?\s*(\*\*|__)?\s*[:.\-]?`

var (
	chunkHeading = regexp.MustCompile(`(?i)^#{1,6}\s+` + chunkFraming + `\s*$`)
	chunkLabel   = regexp.MustCompile(`(?i)^` + chunkFraming + `\s*$`)
)

func isChunkHeader(line string) bool {
	line = strings.TrimSpace(line)
	return chunkHeading.MatchString(line) || chunkLabel.MatchString(line)
}

// stripChunkHeaders drops leading blank lines and chunk headers.
func stripChunkHeaders(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	i := 0
	for i < len(lines) && (strings.TrimSpace(lines[i]) == "" || isChunkHeader(lines[i])) {
		i++
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}

// MergeChunkSummaries orders summaries by chunk index, strips chunk headers and joins
// them with SummarySeparator. Summaries that are empty after stripping are skipped.
func MergeChunkSummaries(summaries []*model.ChunkSummary) string {
	ordered := make([]*model.ChunkSummary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ChunkIndex < ordered[j].ChunkIndex
	})

	parts := make([]string, 0, len(ordered))
	for _, s := range ordered {
		if text := stripChunkHeaders(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, SummarySeparator)
}

// SummaryMerge writes the merged summary to the output directory. The file is the
// checkpoint kept even when refinement fails.
type SummaryMerge struct {
	stageCommand
}

func NewSummaryMerge(name string) *SummaryMerge {
	return &SummaryMerge{stageCommand: newStageCommand(name, model.KindSummarization)}
}

func (c *SummaryMerge) Execute(context cor.Context) {
	job, tracker := JobFrom(context)

	merged := MergeChunkSummaries(tracker.Summaries())
	if merged == "" {
		c.failStage(context, job, tracker, fmt.Errorf("no chunk summary to merge: %w", model.ErrEmptyResponse))
		return
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to create output directory %s: %w", job.OutputDir, err))
		return
	}
	path := job.MergedPath()
	if err := os.WriteFile(path, []byte(merged), 0o644); err != nil {
		c.failStage(context, job, tracker, fmt.Errorf("failed to write merged summary %s: %w", path, err))
		return
	}
	tracker.SetMerged(&model.SummaryDocument{Path: path, Text: merged})
	slog.InfoContext(context.GetContext(), "merged summary written", "video", job.Base, "path", path)

	if !c.advance(context, job, tracker, model.StateMerged) {
		return
	}
	c.Succeed(context)
}
