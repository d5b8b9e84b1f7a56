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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
)

// GCSToTempFile downloads the triggering object into a local directory, keeping its
// file name so summaries are named after the video. The file is removed when the
// chain context is closed.
type GCSToTempFile struct {
	cor.BaseCommand
	client *storage.Client
	dir    string
}

func NewGCSToTempFile(name string, client *storage.Client, dir string) *GCSToTempFile {
	return &GCSToTempFile{BaseCommand: *cor.NewBaseCommand(name), client: client, dir: dir}
}

func (c *GCSToTempFile) Execute(context cor.Context) {
	msg := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	ctx := context.GetContext()

	reader, err := c.client.Bucket(msg.Bucket).Object(msg.Name).NewReader(ctx)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to create GCS reader for %s: %w", msg.URI(), err))
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close GCS reader", "object", msg.URI(), "error", err)
		}
	}()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.Fail(context, fmt.Errorf("could not create download directory %s: %w", c.dir, err))
		return
	}
	path := filepath.Join(c.dir, msg.BaseName())
	file, err := os.Create(path)
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create local file %s: %w", path, err))
		return
	}
	context.AddTempFile(path)

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to download %s after %d bytes: %w", msg.URI(), written, err))
		return
	}

	slog.InfoContext(ctx, "downloaded object", "object", msg.URI(), "path", path, "bytes", written)
	context.Add(c.GetOutputParam(), path)
	c.Succeed(context)
}
