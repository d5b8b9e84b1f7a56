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
)

// JobTracker holds the mutable state of one video while its pipeline runs. It is
// owned by the orchestrator and shared by the commands of that video only.
type JobTracker struct {
	state     VideoState
	history   []VideoState
	failure   error
	assets    []*RemoteAsset
	artifacts []*ChunkArtifact
	summaries []*ChunkSummary
	plan      ChunkPlan
	merged    *SummaryDocument
	refined   *SummaryDocument
	cleanedUp bool
}

// NewJobTracker starts a tracker in the PENDING state.
func NewJobTracker() *JobTracker {
	return &JobTracker{state: StatePending, history: []VideoState{StatePending}}
}

func (t *JobTracker) State() VideoState {
	return t.state
}

// History is every state the video has been in, in order.
func (t *JobTracker) History() []VideoState {
	out := make([]VideoState, len(t.history))
	copy(out, t.history)
	return out
}

// Advance moves to the next state or returns an error if the move is not allowed.
func (t *JobTracker) Advance(to VideoState) error {
	if !CanTransition(t.state, to) {
		return fmt.Errorf("invalid transition %s -> %s", t.state, to)
	}
	t.state = to
	t.history = append(t.history, to)
	return nil
}

// Fail records the first failure and moves to FAILED. Later failures are ignored so
// the primary cause is never masked.
func (t *JobTracker) Fail(err error) {
	if t.failure == nil {
		t.failure = err
	}
	if !t.state.IsTerminal() {
		t.state = StateFailed
		t.history = append(t.history, StateFailed)
	}
}

// Failure is the error that moved the video to FAILED, if any.
func (t *JobTracker) Failure() error {
	return t.failure
}

// LastStateBefore returns the last state reached before FAILED, which identifies
// how far the pipeline got.
func (t *JobTracker) LastStateBefore() VideoState {
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i] != StateFailed {
			return t.history[i]
		}
	}
	return StatePending
}

func (t *JobTracker) SetPlan(plan ChunkPlan) {
	t.plan = plan
}

func (t *JobTracker) Plan() ChunkPlan {
	return t.plan
}

func (t *JobTracker) AddArtifact(a *ChunkArtifact) {
	t.artifacts = append(t.artifacts, a)
}

func (t *JobTracker) Artifacts() []*ChunkArtifact {
	return t.artifacts
}

// TrackAsset registers an uploaded asset as active.
func (t *JobTracker) TrackAsset(a *RemoteAsset) {
	a.Active = true
	t.assets = append(t.assets, a)
}

// Assets returns every asset uploaded for the video, active or not.
func (t *JobTracker) Assets() []*RemoteAsset {
	return t.assets
}

// ActiveAssets returns the assets that have not been deleted yet.
func (t *JobTracker) ActiveAssets() []*RemoteAsset {
	out := make([]*RemoteAsset, 0, len(t.assets))
	for _, a := range t.assets {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

func (t *JobTracker) AddSummary(s *ChunkSummary) {
	t.summaries = append(t.summaries, s)
}

func (t *JobTracker) Summaries() []*ChunkSummary {
	return t.summaries
}

func (t *JobTracker) SetMerged(doc *SummaryDocument) {
	t.merged = doc
}

func (t *JobTracker) Merged() *SummaryDocument {
	return t.merged
}

func (t *JobTracker) SetRefined(doc *SummaryDocument) {
	t.refined = doc
}

func (t *JobTracker) Refined() *SummaryDocument {
	return t.refined
}

// BeginCleanup returns true exactly once. Callers skip cleanup when it returns false.
func (t *JobTracker) BeginCleanup() bool {
	if t.cleanedUp {
		return false
	}
	t.cleanedUp = true
	return true
}

func (t *JobTracker) CleanedUp() bool {
	return t.cleanedUp
}
