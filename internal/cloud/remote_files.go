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
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"google.golang.org/genai"
)

// FileService is the part of *genai.Files used by FileAPIStore.
type FileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// FileAPIStore holds chunks in the Gemini File API. An upload returns once the file
// has left the PROCESSING state.
type FileAPIStore struct {
	files        FileService
	pollInterval time.Duration
}

// NewFileAPIStore creates a store polling every pollInterval while a file is processed.
func NewFileAPIStore(files FileService, pollInterval time.Duration) *FileAPIStore {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &FileAPIStore{files: files, pollInterval: pollInterval}
}

// FileID returns the last segment of a resource name such as "files/abc123".
func FileID(name string) string {
	return path.Base(name)
}

func (s *FileAPIStore) Upload(ctx context.Context, localPath string, chunkIndex int) (*model.RemoteAsset, error) {
	mimeType := DetectMIMEType(localPath)
	file, err := s.files.UploadFromPath(ctx, localPath, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(localPath),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	for file.State == genai.FileStateProcessing {
		slog.DebugContext(ctx, "waiting for file to become active", "name", file.Name)
		select {
		case <-ctx.Done():
			return s.abandon(file, ctx.Err())
		case <-time.After(s.pollInterval):
		}
		polled, err := s.files.Get(ctx, file.Name, nil)
		if err != nil {
			return s.abandon(file, fmt.Errorf("failed to poll %s: %w", localPath, err))
		}
		file = polled
	}
	if file.State == genai.FileStateFailed {
		return s.abandon(file, fmt.Errorf("remote processing failed for %s", localPath))
	}

	if file.MIMEType != "" {
		mimeType = file.MIMEType
	}
	return &model.RemoteAsset{
		ID:         FileID(file.Name),
		Name:       file.Name,
		URI:        file.URI,
		MIMEType:   mimeType,
		ChunkIndex: chunkIndex,
	}, nil
}

// abandon deletes a file that will never become usable and returns cause.
func (s *FileAPIStore) abandon(file *genai.File, cause error) (*model.RemoteAsset, error) {
	if _, err := s.files.Delete(context.Background(), file.Name, nil); err != nil {
		slog.Warn("failed to delete abandoned file", "name", file.Name, "error", err)
	}
	return nil, cause
}

func (s *FileAPIStore) Delete(ctx context.Context, asset *model.RemoteAsset) error {
	if _, err := s.files.Delete(ctx, asset.Name, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", asset.Name, err)
	}
	return nil
}
