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
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
)

// BucketStore holds chunks as GCS objects, which Vertex AI reads by gs:// URI.
type BucketStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewBucketStore(client *storage.Client, bucket string, prefix string) *BucketStore {
	return &BucketStore{client: client, bucket: bucket, prefix: prefix}
}

// ObjectName is the object a chunk is written to under prefix.
func ObjectName(prefix string, id string, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return path.Join(prefix, id+ext)
}

func (s *BucketStore) Upload(ctx context.Context, localPath string, chunkIndex int) (*model.RemoteAsset, error) {
	dat, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer dat.Close()

	id := uuid.NewString()
	name := ObjectName(s.prefix, id, localPath)
	mimeType := DetectMIMEType(localPath)

	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = mimeType
	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to copy %s to gs://%s/%s after %d bytes: %w", localPath, s.bucket, name, written, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gs://%s/%s: %w", s.bucket, name, err)
	}

	return &model.RemoteAsset{
		ID:         id,
		Name:       name,
		URI:        fmt.Sprintf("gs://%s/%s", s.bucket, name),
		MIMEType:   mimeType,
		ChunkIndex: chunkIndex,
	}, nil
}

func (s *BucketStore) Delete(ctx context.Context, asset *model.RemoteAsset) error {
	if err := s.client.Bucket(s.bucket).Object(asset.Name).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucket, asset.Name, err)
	}
	return nil
}
