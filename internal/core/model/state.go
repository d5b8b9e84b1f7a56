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

// VideoState is a position in the per-video lifecycle.
type VideoState string

const (
	StatePending    VideoState = "PENDING"
	StatePlanned    VideoState = "PLANNED"
	StateChunked    VideoState = "CHUNKED"
	StateUploaded   VideoState = "UPLOADED"
	StateSummarized VideoState = "SUMMARIZED"
	StateMerged     VideoState = "MERGED"
	StateRefined    VideoState = "REFINED"
	StateDone       VideoState = "DONE"
	StateFailed     VideoState = "FAILED"
)

// forward lists the only non-failure move out of each state.
var forward = map[VideoState]VideoState{
	StatePending:    StatePlanned,
	StatePlanned:    StateChunked,
	StateChunked:    StateUploaded,
	StateUploaded:   StateSummarized,
	StateSummarized: StateMerged,
	StateMerged:     StateRefined,
	StateRefined:    StateDone,
}

// IsTerminal reports whether no further transition is allowed.
func (s VideoState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether the lifecycle allows moving from one state to another.
// FAILED is reachable from every non-terminal state.
func CanTransition(from VideoState, to VideoState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	next, ok := forward[from]
	return ok && next == to
}
