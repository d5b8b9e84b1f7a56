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

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// URLSigner issues a time limited download link for an object.
type URLSigner interface {
	SignedURL(ctx context.Context, bucket string, object string) (string, error)
}

// PublishObjectName is where a summary file of a video is published.
func PublishObjectName(prefix string, outcome *model.VideoOutcome, localPath string) string {
	return path.Join(prefix, outcome.Base, filepath.Base(localPath))
}

// SummaryPublish copies the merged and refined summaries of a finished video to a
// bucket and records their URIs, and signed links when a signer is set, on the
// outcome. Publishing never changes the outcome's status.
type SummaryPublish struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
	prefix string
	signer URLSigner
}

func NewSummaryPublish(name string, client *storage.Client, bucket string, prefix string, signer URLSigner) *SummaryPublish {
	return &SummaryPublish{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket, prefix: prefix, signer: signer}
}

func (c *SummaryPublish) IsExecutable(context cor.Context) bool {
	outcome, ok := context.Get(OutcomeKey).(*model.VideoOutcome)
	return ok && outcome != nil && context.GetContext() != nil
}

func (c *SummaryPublish) Execute(context cor.Context) {
	outcome := context.Get(OutcomeKey).(*model.VideoOutcome)
	ctx := context.GetContext()

	for _, local := range []string{outcome.MergedPath, outcome.RefinedPath} {
		if local == "" {
			continue
		}
		object := PublishObjectName(c.prefix, outcome, local)
		if err := c.upload(ctx, local, object); err != nil {
			c.Fail(context, err)
			return
		}
		outcome.PublishedURIs = append(outcome.PublishedURIs, fmt.Sprintf("gs://%s/%s", c.bucket, object))
		slog.InfoContext(ctx, "published summary", "video", outcome.Base, "object", object)

		if c.signer == nil {
			continue
		}
		url, err := c.signer.SignedURL(ctx, c.bucket, object)
		if err != nil {
			slog.WarnContext(ctx, "failed to sign summary url", "object", object, "error", err)
			continue
		}
		outcome.SignedURLs = append(outcome.SignedURLs, url)
	}
	c.Succeed(context)
}

func (c *SummaryPublish) upload(ctx context.Context, local string, object string) error {
	dat, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", local, err)
	}
	defer dat.Close()

	writer := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "text/markdown; charset=utf-8"
	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to copy %s to GCS after %d bytes: %w", local, written, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", c.bucket, object, err)
	}
	return nil
}
