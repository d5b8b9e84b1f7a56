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
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

const (
	DefaultWatchQueueSize = 64
	DefaultSettleInterval = 2 * time.Second
	maxSettleChecks       = 150
)

// CompletionChecker tells whether a video was already summarized.
type CompletionChecker interface {
	IsCompleted(ctx context.Context, videoID string) (bool, error)
}

// Watcher queues videos created in a directory and runs them through a single
// worker, so videos are still processed one at a time.
//
// Logic Flow:
//  1. fsnotify CREATE events for video files are queued. A path already waiting in
//     the queue is not queued twice.
//  2. The worker waits until the file size stops changing, so copies in progress
//     are not picked up half written.
//  3. Videos recorded as completed are skipped; everything else goes through the
//     batch runner.
type Watcher struct {
	dir     string
	batch   *BatchRunner
	seen    CompletionChecker
	runID   string
	queue   chan string
	mu      sync.Mutex
	pending map[string]bool
	// Settle is the interval between two size checks of a new file.
	Settle time.Duration
	// OnOutcome is called after every processed or skipped video.
	OnOutcome func(*model.VideoOutcome)
}

// NewWatcher creates a watcher for dir. seen may be nil.
func NewWatcher(dir string, batch *BatchRunner, seen CompletionChecker, queueSize int) *Watcher {
	if queueSize <= 0 {
		queueSize = DefaultWatchQueueSize
	}
	return &Watcher{
		dir:     dir,
		batch:   batch,
		seen:    seen,
		runID:   uuid.NewString(),
		queue:   make(chan string, queueSize),
		pending: make(map[string]bool),
		Settle:  DefaultSettleInterval,
	}
}

// Enqueue adds a video to the queue. It returns false for non video files, paths
// already queued and when the queue is full.
func (w *Watcher) Enqueue(path string) bool {
	if !IsVideoFile(path) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending[path] {
		return false
	}
	select {
	case w.queue <- path:
		w.pending[path] = true
		return true
	default:
		slog.Warn("watch queue full, dropping video", "path", path)
		return false
	}
}

func (w *Watcher) dequeued(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// Start watches the directory until ctx is cancelled, then waits for the video in
// progress to finish.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("add watch path %s: %w", w.dir, err)
	}
	slog.InfoContext(ctx, "watching directory", "dir", w.dir, "run", w.runID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Work(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "waiting for the video in progress")
			<-done
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				if w.Enqueue(event.Name) {
					slog.InfoContext(ctx, "queued video", "path", event.Name)
				} else {
					slog.DebugContext(ctx, "ignoring file", "path", event.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.ErrorContext(ctx, "watcher error", "error", err)
		}
	}
}

// Work processes queued videos until ctx is cancelled.
func (w *Watcher) Work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.dequeued(path)
			outcome := w.process(ctx, path)
			if outcome != nil && w.OnOutcome != nil {
				w.OnOutcome(outcome)
			}
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) *model.VideoOutcome {
	if !w.settled(ctx, path) {
		return nil
	}
	job := w.batch.NewJob(w.runID, path)
	if w.seen != nil {
		done, err := w.seen.IsCompleted(ctx, job.ID)
		if err != nil {
			slog.WarnContext(ctx, "failed to check completed videos", "video", job.Base, "error", err)
		}
		if done {
			slog.InfoContext(ctx, "video already summarized", "video", job.Base)
			return NewSkippedOutcome(job, "already summarized")
		}
	}
	return w.batch.RunJob(ctx, job)
}

// settled waits until the size of path is the same on two consecutive checks.
func (w *Watcher) settled(ctx context.Context, path string) bool {
	last := int64(-1)
	for i := 0; i < maxSettleChecks; i++ {
		info, err := os.Stat(path)
		if err != nil {
			slog.WarnContext(ctx, "queued video disappeared", "path", filepath.Base(path), "error", err)
			return false
		}
		if info.Size() == last && info.Size() > 0 {
			return true
		}
		last = info.Size()
		if w.Settle <= 0 {
			if info.Size() > 0 {
				return true
			}
			continue
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.Settle):
		}
	}
	slog.WarnContext(ctx, "queued video never settled", "path", path)
	return false
}
