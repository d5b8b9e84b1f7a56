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

// Package test provides fakes of the pipeline collaborators and fixtures shared by
// the package tests. Nothing here touches the network or runs ffmpeg.
package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// HandleErr fails the test on a non nil error.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// GetTestNotificationText is a GCS finalize notification for a video object.
func GetTestNotificationText() string {
	return `{
  "kind": "storage#object",
  "id": "media_incoming/lectures/week-01.mp4/1728615848664286",
  "name": "lectures/week-01.mp4",
  "bucket": "media_incoming",
  "generation": "1728615848664286",
  "contentType": "video/mp4",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "metadata": { "touch": "18" }
}`
}

// WriteVideo creates a placeholder video file and returns its path.
func WriteVideo(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	HandleErr(os.MkdirAll(filepath.Dir(path), 0o755), t)
	HandleErr(os.WriteFile(path, []byte("video:"+name), 0o644), t)
	return path
}

// FakeProber returns a duration per source path, or Default.
type FakeProber struct {
	mu        sync.Mutex
	Default   time.Duration
	Durations map[string]time.Duration
	Errors    map[string]error
	Calls     []string
}

func (f *FakeProber) Probe(_ context.Context, source string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, source)
	if err, ok := f.Errors[source]; ok {
		return 0, err
	}
	if d, ok := f.Durations[source]; ok {
		return d, nil
	}
	return f.Default, nil
}

// SplitCall records one extraction.
type SplitCall struct {
	Source string
	Start  time.Duration
	End    time.Duration
	Dest   string
}

// FakeSplitter writes a small file for every extraction. FailOnCall makes the n-th
// call (1-based) fail, FailSources fails every call for a source.
type FakeSplitter struct {
	mu          sync.Mutex
	FailOnCall  int
	FailSources map[string]bool
	Calls       []SplitCall
}

func (f *FakeSplitter) Extract(_ context.Context, source string, start time.Duration, end time.Duration, dest string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, SplitCall{Source: source, Start: start, End: end, Dest: dest})
	if len(f.Calls) == f.FailOnCall || f.FailSources[source] {
		return "", fmt.Errorf("splitter failed on %s", dest)
	}
	if err := os.WriteFile(dest, []byte(fmt.Sprintf("%s [%s, %s]", source, start, end)), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

// FakeStore keeps uploaded assets in memory. FailOnUpload makes the n-th upload
// (1-based) fail; DeleteErr makes every delete fail after being recorded.
type FakeStore struct {
	mu           sync.Mutex
	FailOnUpload int
	DeleteErr    error
	uploads      int
	Uploaded     []*model.RemoteAsset
	Deleted      []string
	live         map[string]bool
}

func (f *FakeStore) Upload(_ context.Context, localPath string, chunkIndex int) (*model.RemoteAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploads == f.FailOnUpload {
		return nil, fmt.Errorf("upload of %s rejected", localPath)
	}
	if f.live == nil {
		f.live = make(map[string]bool)
	}
	id := fmt.Sprintf("asset%03d", f.uploads)
	asset := &model.RemoteAsset{
		ID:         id,
		Name:       "files/" + id,
		URI:        "https://remote.invalid/files/" + id,
		MIMEType:   "video/mp4",
		ChunkIndex: chunkIndex,
	}
	f.Uploaded = append(f.Uploaded, asset)
	f.live[asset.Name] = true
	return asset, nil
}

func (f *FakeStore) Delete(_ context.Context, asset *model.RemoteAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, asset.Name)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.live, asset.Name)
	return nil
}

// Live is the number of uploaded assets not deleted successfully.
func (f *FakeStore) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// GenerateCall records one generation request.
type GenerateCall struct {
	Prompt  string
	Content model.ContentRef
}

// FakeGenerator answers with Fn when set, otherwise with a summary naming the asset
// or echoing the text.
type FakeGenerator struct {
	mu    sync.Mutex
	Fn    func(call int, prompt string, content model.ContentRef) (string, error)
	Calls []GenerateCall
}

func (f *FakeGenerator) Generate(_ context.Context, prompt string, content model.ContentRef) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, GenerateCall{Prompt: prompt, Content: content})
	call := len(f.Calls)
	fn := f.Fn
	f.mu.Unlock()

	if fn != nil {
		return fn(call, prompt, content)
	}
	if content.Asset != nil {
		return fmt.Sprintf("Summary of chunk %d.", content.Asset.ChunkIndex), nil
	}
	return "# Title\n\n_Subtitle_\n\n" + content.Text, nil
}

// CallCount is the number of Generate calls so far.
func (f *FakeGenerator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakePacer counts pauses instead of sleeping.
type FakePacer struct {
	mu     sync.Mutex
	Pauses int
}

func (f *FakePacer) Pause() {
	f.mu.Lock()
	f.Pauses++
	f.mu.Unlock()
}

func (f *FakePacer) Interval() time.Duration {
	return 0
}

// Sleeps records requested sleeps without waiting.
type Sleeps struct {
	mu    sync.Mutex
	Waits []time.Duration
}

func (s *Sleeps) Sleep(d time.Duration) {
	s.mu.Lock()
	s.Waits = append(s.Waits, d)
	s.mu.Unlock()
}

// Settings are fast job settings: three 100s chunks for a 250s video and no waits.
func Settings() model.Settings {
	return model.Settings{
		Model:            "gemini-2.0-flash",
		MaxChunkDuration: 100 * time.Second,
		OverlapDuration:  10 * time.Second,
		CallTimeout:      time.Second,
		RetryAttempts:    2,
		RetryBackoff:     10 * time.Second,
	}
}
