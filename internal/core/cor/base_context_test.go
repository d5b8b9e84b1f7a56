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

package cor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextCloseRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chunk_1.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	ctx := cor.NewBaseContext()
	ctx.AddTempFile(file)
	ctx.AddTempFile(filepath.Join(dir, "missing.mp4"))
	ctx.Close()

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, ctx.GetTempFiles())
}

func TestContextAddGetRemove(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.Add("a", 1).Add("b", "two")
	assert.Equal(t, 1, ctx.Get("a"))
	assert.Equal(t, "two", ctx.Get("b"))

	ctx.Remove("a")
	assert.Nil(t, ctx.Get("a"))
}
