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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultFFMpegPath  = "ffmpeg"
	DefaultFFProbePath = "ffprobe"
)

// FFMpegSplitter cuts chunks with stream copy, so no re-encoding happens.
type FFMpegSplitter struct {
	executor   Executor
	ffmpegPath string
}

// NewFFMpegSplitter creates a splitter running ffmpegPath, or "ffmpeg" when empty.
func NewFFMpegSplitter(executor Executor, ffmpegPath string) *FFMpegSplitter {
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFMpegPath
	}
	return &FFMpegSplitter{executor: executor, ffmpegPath: ffmpegPath}
}

// Seconds formats a duration the way ffmpeg expects it.
func Seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// ExtractArgs are the ffmpeg arguments for one chunk.
func ExtractArgs(source string, start time.Duration, end time.Duration, dest string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", Seconds(start),
		"-i", source,
		"-t", Seconds(end - start),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		dest,
	}
}

func (s *FFMpegSplitter) Extract(ctx context.Context, source string, start time.Duration, end time.Duration, dest string) (string, error) {
	if end <= start {
		return "", fmt.Errorf("empty range [%s, %s] for %s", Seconds(start), Seconds(end), source)
	}
	if _, err := s.executor.Execute(ctx, s.ffmpegPath, ExtractArgs(source, start, end, dest)...); err != nil {
		return "", err
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("ffmpeg produced no output for %s", dest)
	}
	return dest, nil
}

// FFProbe reads durations with ffprobe.
type FFProbe struct {
	executor    Executor
	ffprobePath string
}

func NewFFProbe(executor Executor, ffprobePath string) *FFProbe {
	if ffprobePath == "" {
		ffprobePath = DefaultFFProbePath
	}
	return &FFProbe{executor: executor, ffprobePath: ffprobePath}
}

func (p *FFProbe) Probe(ctx context.Context, source string) (time.Duration, error) {
	out, err := p.executor.Execute(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,duration",
		"-of", "json",
		source)
	if err != nil {
		return 0, err
	}
	return ParseProbeOutput(out)
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbeOutput prefers the first video stream's duration and falls back to the
// container duration.
func ParseProbeOutput(out string) (time.Duration, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if d, ok := parseSeconds(s.Duration); ok {
			return d, nil
		}
		break
	}
	if d, ok := parseSeconds(probe.Format.Duration); ok {
		return d, nil
	}
	return 0, fmt.Errorf("ffprobe reported no duration")
}

func parseSeconds(s string) (time.Duration, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}
