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

package model

import (
	"fmt"
	"time"
)

// These objects live only for the duration of one video's pipeline.

// ChunkRange is one planned time window. Index is 1-based.
type ChunkRange struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Duration is the length of the window.
func (r ChunkRange) Duration() time.Duration {
	return r.End - r.Start
}

func (r ChunkRange) String() string {
	return fmt.Sprintf("chunk %d [%.3fs, %.3fs]", r.Index, r.Start.Seconds(), r.End.Seconds())
}

// ChunkPlan is the ordered list of windows for a video.
type ChunkPlan []ChunkRange

// ChunkArtifact is a chunk materialized on local disk.
type ChunkArtifact struct {
	Range ChunkRange
	Path  string
}

// RemoteAsset is a chunk held by the remote service.
type RemoteAsset struct {
	ID         string // Opaque identifier, also used to name the chunk summary file.
	Name       string // Full remote resource name, e.g. "files/abc123".
	URI        string // What the model is pointed at.
	MIMEType   string
	ChunkIndex int
	Active     bool // True until a delete has been attempted.
}

// Deactivate marks the asset as no longer held remotely.
func (a *RemoteAsset) Deactivate() {
	a.Active = false
}

// ContentRef is the input of one generation call, either an uploaded asset or plain text.
type ContentRef struct {
	Asset *RemoteAsset
	Text  string
}

// ChunkSummary is the generated text for one chunk.
type ChunkSummary struct {
	ChunkIndex int
	RemoteID   string
	Text       string
	Path       string
}

// SummaryDocument is a merged or refined summary written to the output directory.
type SummaryDocument struct {
	Path string
	Text string
}
