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

package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/services"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/assert"
)

func TestOutcomeRowSave(t *testing.T) {
	started := time.Date(2024, 10, 11, 9, 0, 0, 0, time.UTC)
	outcome := &model.VideoOutcome{
		VideoID:       "v1",
		RunID:         "r1",
		Base:          "talk",
		Status:        model.StatusFailed,
		FinalState:    model.StateFailed,
		FailedStage:   model.StateUploaded,
		ErrorKind:     model.KindSummarization,
		Chunks:        3,
		PublishedURIs: []string{"gs://b/talk/talk_summary.md"},
		SignedURLs:    []string{"https://signed"},
		StartedAt:     started,
	}

	row, insertID, err := services.OutcomeRow{Outcome: outcome}.Save()
	assert.NoError(t, err)
	assert.Equal(t, insertID, "v1/r1")
	assert.Equal(t, row["status"], "failed")
	assert.Equal(t, row["failed_stage"], "UPLOADED")
	assert.Equal(t, row["error_kind"], "SummarizationError")
	assert.Equal(t, row["chunks"], 3)
	assert.Equal(t, row["started_at"], started)
	_, hasSigned := row["signed_urls"]
	assert.False(t, hasSigned)
	assert.Equal(t, len(row["published_uris"].([]interface{})), 1)
}

func TestOutcomeRecordToOutcome(t *testing.T) {
	rec := &services.OutcomeRecord{
		VideoID:     "v1",
		Status:      "succeeded",
		FinalState:  "DONE",
		RefinedPath: "out/talk_summary_v2.md",
	}
	outcome := rec.ToOutcome()
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, outcome.FinalState, model.StateDone)
	assert.Equal(t, outcome.RefinedPath, "out/talk_summary_v2.md")
}

func TestSummaryLinksSignedURL(t *testing.T) {
	var signedBy string
	links := &services.SummaryLinks{
		SignerEmail: "signer@project.iam.gserviceaccount.com",
		TTL:         time.Hour,
		Sign: func(_ context.Context, account string, payload []byte) ([]byte, error) {
			signedBy = account
			assert.That(t, len(payload) > 0)
			return []byte("sig"), nil
		},
	}

	u, err := links.SignedURL(context.Background(), "summaries", "talk/talk_summary.md")
	assert.NoError(t, err)
	assert.Equal(t, signedBy, "signer@project.iam.gserviceaccount.com")
	assert.That(t, strings.Contains(u, "summaries/talk/talk_summary.md"))
	assert.That(t, strings.Contains(u, "X-Goog-Signature=736967"))
}

func TestSummaryLinksSignError(t *testing.T) {
	links := &services.SummaryLinks{
		SignerEmail: "signer@project.iam.gserviceaccount.com",
		TTL:         time.Hour,
		Sign: func(context.Context, string, []byte) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	}
	_, err := links.SignedURL(context.Background(), "summaries", "talk.md")
	assert.Error(t, err)
}

// setHook answers set commands from memory so no Redis server is needed.
type setHook struct {
	mu      sync.Mutex
	sets    map[string]map[string]bool
	expires map[string]time.Duration
	fail    error
}

func newSetHook() *setHook {
	return &setHook{sets: make(map[string]map[string]bool), expires: make(map[string]time.Duration)}
}

func (h *setHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *setHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *setHook) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.fail != nil {
			cmd.SetErr(h.fail)
			return h.fail
		}
		args := cmd.Args()
		key, _ := args[1].(string)
		switch c := cmd.(type) {
		case *redis.IntCmd:
			switch cmd.Name() {
			case "sadd":
				if h.sets[key] == nil {
					h.sets[key] = make(map[string]bool)
				}
				member, _ := args[2].(string)
				h.sets[key][member] = true
				c.SetVal(1)
			case "scard":
				c.SetVal(int64(len(h.sets[key])))
			}
		case *redis.BoolCmd:
			switch cmd.Name() {
			case "sismember":
				member, _ := args[2].(string)
				c.SetVal(h.sets[key][member])
			case "expire":
				seconds, _ := args[2].(int64)
				h.expires[key] = time.Duration(seconds) * time.Second
				c.SetVal(true)
			}
		}
		return nil
	}
}

func newRedis(hook *setHook) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "redis.invalid:6379"})
	client.AddHook(hook)
	return client
}

func TestSeenStore(t *testing.T) {
	ctx := context.Background()
	hook := newSetHook()
	client := newRedis(hook)
	defer func() { _ = client.Close() }()
	store := services.NewSeenStore(client, "summarizer:completed", time.Hour)

	done, err := store.IsCompleted(ctx, "v1")
	assert.NoError(t, err)
	assert.False(t, done)

	assert.NoError(t, store.MarkCompleted(ctx, "v1"))
	done, err = store.IsCompleted(ctx, "v1")
	assert.NoError(t, err)
	assert.True(t, done)

	n, err := store.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, n, int64(1))
	assert.Equal(t, hook.expires["summarizer:completed"], time.Hour)
}

func TestSeenStoreErrors(t *testing.T) {
	hook := newSetHook()
	hook.fail = errors.New("connection refused")
	client := newRedis(hook)
	defer func() { _ = client.Close() }()
	store := services.NewSeenStore(client, "summarizer:completed", 0)

	_, err := store.IsCompleted(context.Background(), "v1")
	assert.Error(t, err)
	assert.Error(t, store.MarkCompleted(context.Background(), "v1"))
}
