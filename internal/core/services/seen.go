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

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore is a Redis set of video ids that were summarized successfully.
type SeenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSeenStore uses the set at key. A positive ttl is refreshed on every write.
func NewSeenStore(client *redis.Client, key string, ttl time.Duration) *SeenStore {
	return &SeenStore{client: client, key: key, ttl: ttl}
}

func (s *SeenStore) IsCompleted(ctx context.Context, videoID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, videoID).Result()
	if err != nil {
		return false, fmt.Errorf("error checking completed set: %w", err)
	}
	return ok, nil
}

func (s *SeenStore) MarkCompleted(ctx context.Context, videoID string) error {
	if err := s.client.SAdd(ctx, s.key, videoID).Err(); err != nil {
		return fmt.Errorf("error adding to completed set: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return fmt.Errorf("error setting completed set ttl: %w", err)
		}
	}
	return nil
}

// Count is the number of completed videos.
func (s *SeenStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting completed count: %w", err)
	}
	return n, nil
}
