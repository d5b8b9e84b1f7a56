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

// Package cloud provides components for interacting with Google Cloud services.
// This file builds ServiceClients, the container of every external client the
// summarizer uses. It is created once in main and passed to the workflows.
//
// Logic Flow:
//  1. The GenAI client is always created, for the Gemini API or Vertex AI backend.
//  2. Storage, Pub/Sub, BigQuery, IAM and Redis clients are created only when the
//     configuration enables a component that needs them.
//  3. The chunk store and the generator are assembled on top of those clients.
package cloud

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// ChunkStore uploads chunks for generation and deletes them afterwards.
type ChunkStore interface {
	Upload(ctx context.Context, localPath string, chunkIndex int) (*model.RemoteAsset, error)
	Delete(ctx context.Context, asset *model.RemoteAsset) error
}

// ServiceClients holds the clients shared across the application. Optional clients
// are nil when their component is disabled.
type ServiceClients struct {
	GenAIClient     *genai.Client
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	RedisClient     *redis.Client
	PubSubListeners map[string]*PubSubListener
	AgentModel      *QuotaAwareGenerativeAIModel
	Generator       *GenAIGenerator
	ChunkStore      ChunkStore
}

// Close releases every client that was created.
func (c *ServiceClients) Close() error {
	var errs []error
	if c.StorageClient != nil {
		errs = append(errs, c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		errs = append(errs, c.PubsubClient.Close())
	}
	if c.BiqQueryClient != nil {
		errs = append(errs, c.BiqQueryClient.Close())
	}
	if c.IAMClient != nil {
		errs = append(errs, c.IAMClient.Close())
	}
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	return errors.Join(errs...)
}

// NeedsStorage reports whether any enabled component reads or writes GCS.
func (c *Config) NeedsStorage() bool {
	return c.Remote.Store == RemoteStoreGCS || c.Storage.SummaryBucket != "" || len(c.TopicSubscriptions) > 0
}

// NewCloudServiceClients creates the clients required by config. config must have
// been validated.
func NewCloudServiceClients(ctx context.Context, config *Config) (_ *ServiceClients, err error) {
	var opts []option.ClientOption
	if config.Application.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.Application.CredentialsFile))
	}

	cloud := &ServiceClients{PubSubListeners: make(map[string]*PubSubListener)}
	defer func() {
		if err != nil {
			_ = cloud.Close()
		}
	}()

	genaiConfig := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if config.Application.Backend == BackendVertex {
		genaiConfig = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
		}
	}
	cloud.GenAIClient, err = genai.NewClient(ctx, genaiConfig)
	if err != nil {
		return nil, model.NewConfigurationError("failed to create genai client: %v", err)
	}
	slog.DebugContext(ctx, "created genai client", "backend", config.Application.Backend)

	if config.NeedsStorage() {
		if cloud.StorageClient, err = storage.NewClient(ctx, opts...); err != nil {
			return nil, err
		}
	}

	if len(config.TopicSubscriptions) > 0 {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId, opts...); err != nil {
			return nil, err
		}
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
			if err != nil {
				return nil, err
			}
			cloud.PubSubListeners[subKey] = listener
		}
	}

	if config.BigQueryDataSource.DatasetName != "" {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId, opts...); err != nil {
			return nil, err
		}
	}

	if config.Storage.SignURLs {
		if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx, opts...); err != nil {
			return nil, err
		}
	}

	if config.Redis.Address != "" {
		cloud.RedisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
	}

	agent := config.Agent()
	cloud.AgentModel = NewQuotaAwareModel(NewGenerateContentConfig(agent), config.Summary.Model, cloud.GenAIClient.Models, agent.RateLimit)
	cloud.Generator = NewGenAIGenerator(cloud.AgentModel)

	switch config.Remote.Store {
	case RemoteStoreGCS:
		cloud.ChunkStore = NewBucketStore(cloud.StorageClient, config.Remote.Bucket, config.Remote.Prefix)
	default:
		cloud.ChunkStore = NewFileAPIStore(cloud.GenAIClient.Files, config.Remote.PollInterval)
	}
	return cloud, nil
}
