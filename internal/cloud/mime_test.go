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

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMIMETypePrefersHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a\x01\x00\x01\x00"), 0o644))
	assert.Equal(t, "image/gif", cloud.DetectMIMEType(path))
}

func TestDetectMIMETypeFallsBackToExtension(t *testing.T) {
	dir := t.TempDir()
	for name, want := range map[string]string{
		"chunk_1.webm": "video/webm",
		"chunk_1.MOV":  "video/quicktime",
		"chunk_1.mp4":  "video/mp4",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
		assert.Equal(t, want, cloud.DetectMIMEType(path), name)
	}
}

func TestDetectMIMETypeDefault(t *testing.T) {
	assert.Equal(t, cloud.DefaultVideoMIMEType, cloud.DetectMIMEType(filepath.Join(t.TempDir(), "missing")))
}

func TestGCSObjectIsVideo(t *testing.T) {
	exts := []string{"mp4", "mov"}
	assert.True(t, (&cloud.GCSObject{Name: "a/b.bin", MIMEType: "video/quicktime"}).IsVideo(exts))
	assert.True(t, (&cloud.GCSObject{Name: "a/b.MOV"}).IsVideo(exts))
	assert.False(t, (&cloud.GCSObject{Name: "a/b.txt", MIMEType: "text/plain"}).IsVideo(exts))

	o := &cloud.GCSObject{Bucket: "in", Name: "talks/keynote.mp4"}
	assert.Equal(t, "gs://in/talks/keynote.mp4", o.URI())
	assert.Equal(t, "keynote.mp4", o.BaseName())
}
