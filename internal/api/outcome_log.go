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

// Package api is the HTTP status surface of the watch and listen modes.
package api

import (
	"sync"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// DefaultOutcomeLogSize is how many outcomes an OutcomeLog keeps.
const DefaultOutcomeLogSize = 200

// OutcomeLog keeps the most recent outcomes of this process in memory.
type OutcomeLog struct {
	mu    sync.RWMutex
	size  int
	items []*model.VideoOutcome
	total int
}

func NewOutcomeLog(size int) *OutcomeLog {
	if size <= 0 {
		size = DefaultOutcomeLogSize
	}
	return &OutcomeLog{size: size, items: make([]*model.VideoOutcome, 0, size)}
}

// Add records an outcome, evicting the oldest one when full.
func (l *OutcomeLog) Add(o *model.VideoOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == l.size {
		copy(l.items, l.items[1:])
		l.items = l.items[:len(l.items)-1]
	}
	l.items = append(l.items, o)
	l.total++
}

// List returns the kept outcomes, newest first.
func (l *OutcomeLog) List() []*model.VideoOutcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.VideoOutcome, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		out = append(out, l.items[i])
	}
	return out
}

// Get returns the latest outcome of a video.
func (l *OutcomeLog) Get(videoID string) (*model.VideoOutcome, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].VideoID == videoID {
			return l.items[i], true
		}
	}
	return nil, false
}

// Counts tallies the kept outcomes by status. Total counts every outcome ever added.
func (l *OutcomeLog) Counts() model.BatchSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := model.BatchSummary{Total: l.total}
	for _, o := range l.items {
		switch o.Status {
		case model.StatusSucceeded:
			out.Succeeded++
		case model.StatusFailed:
			out.Failed++
		case model.StatusSkipped:
			out.Skipped++
		}
	}
	return out
}
