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
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// DefaultVideoMIMEType is used when neither the header nor the extension identify a file.
const DefaultVideoMIMEType = "video/mp4"

// DetectMIMEType sniffs the file header first and falls back to the extension.
func DetectMIMEType(path string) string {
	if f, err := os.Open(path); err == nil {
		header := make([]byte, 261)
		n, _ := f.Read(header)
		_ = f.Close()
		if kind, err := filetype.Match(header[:n]); err == nil && kind != filetype.Unknown {
			return kind.MIME.Value
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if kind := filetype.GetType(strings.TrimPrefix(ext, ".")); kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if i := strings.Index(byExt, ";"); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return DefaultVideoMIMEType
}
