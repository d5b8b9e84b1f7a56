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
// This file wraps the GenAI models service with a client side quota. Every call waits
// on a token bucket before it is sent, so a project with a lower quota than the
// pipeline's fixed pacing still stays under its limit.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ModelHandle is the part of *genai.Models the wrapper calls.
type ModelHandle interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel sends generation requests for one model name with a
// fixed configuration, limited to RateLimit requests per minute.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ModelHandle
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps handle. requestsPerMinute <= 0 disables the limit.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle ModelHandle, requestsPerMinute int) *QuotaAwareGenerativeAIModel {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(limit, 1),
	}
}

// GenerateContent waits for a token and sends the request. A context that ends
// while waiting returns its error without calling the model.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}

// NewGenerateContentConfig turns the configured agent parameters into a request
// configuration. Zero values are left to the service defaults.
func NewGenerateContentConfig(agent VertexAiLLMModel) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SafetySettings: DefaultSafetySettings,
	}
	if agent.Temperature > 0 {
		cfg.Temperature = genai.Ptr[float32](agent.Temperature)
	}
	if agent.TopP > 0 {
		cfg.TopP = genai.Ptr[float32](agent.TopP)
	}
	if agent.TopK > 0 {
		cfg.TopK = genai.Ptr[float32](agent.TopK)
	}
	if agent.MaxTokens > 0 {
		cfg.MaxOutputTokens = agent.MaxTokens
	}
	if agent.SystemInstructions != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: agent.SystemInstructions}}}
	}
	return cfg
}
