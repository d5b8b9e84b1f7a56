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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// GenAIGenerator produces text from a prompt and either an uploaded asset or plain
// text. Errors are mapped onto model.ErrTimeout, model.ErrRemote and
// model.ErrEmptyResponse.
type GenAIGenerator struct {
	model              *QuotaAwareGenerativeAIModel
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewGenAIGenerator creates a generator backed by a quota aware model.
func NewGenAIGenerator(m *QuotaAwareGenerativeAIModel) *GenAIGenerator {
	meter := otel.Meter("github.com/jaycherian/gcp-go-video-summary")
	in, err := meter.Int64Counter("genai.tokens.input")
	if err != nil {
		slog.Warn("error creating input token counter", "error", err)
	}
	out, err := meter.Int64Counter("genai.tokens.output")
	if err != nil {
		slog.Warn("error creating output token counter", "error", err)
	}
	return &GenAIGenerator{model: m, inputTokenCounter: in, outputTokenCounter: out}
}

// ModelName is the model the generator calls.
func (g *GenAIGenerator) ModelName() string {
	return g.model.ModelName
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string, content model.ContentRef) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if content.Asset != nil {
		parts = append(parts, &genai.Part{FileData: &genai.FileData{
			FileURI:  content.Asset.URI,
			MIMEType: content.Asset.MIMEType,
		}})
	}
	text := prompt
	if content.Text != "" {
		text = prompt + "\n\n" + content.Text
	}
	parts = append(parts, &genai.Part{Text: text})

	resp, err := g.model.GenerateContent(ctx, []*genai.Content{{Role: "user", Parts: parts}})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", model.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", model.ErrRemote, err)
	}

	if resp.UsageMetadata != nil {
		if g.inputTokenCounter != nil {
			g.inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		}
		if g.outputTokenCounter != nil {
			g.outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
		}
	}

	value := ResponseText(resp)
	if strings.TrimSpace(value) == "" {
		return "", model.ErrEmptyResponse
	}
	return value, nil
}

// ResponseText concatenates the text parts of every candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}
