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
	"fmt"
	"path"
	"strings"
)

// GCSObjectKey is the chain context key a triggering GCS object is stored under.
const GCSObjectKey = "__GCS__OBJ__"

// GCSPubSubNotification is the JSON payload of a GCS object notification. Only the
// fields the listener needs are decoded.
type GCSPubSubNotification struct {
	Kind        string            `json:"kind"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Bucket      string            `json:"bucket"`
	Generation  string            `json:"generation"`
	ContentType string            `json:"contentType"`
	Size        string            `json:"size"`
	MD5Hash     string            `json:"md5Hash"`
	MetaData    map[string]string `json:"metadata"`
}

// GCSObject identifies an object to download.
type GCSObject struct {
	Bucket     string
	Name       string
	MIMEType   string
	Generation string
}

func (o *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// BaseName is the object's file name.
func (o *GCSObject) BaseName() string {
	return path.Base(o.Name)
}

// IsVideo reports whether the object looks like a video, by content type or extension.
func (o *GCSObject) IsVideo(extensions []string) bool {
	if strings.HasPrefix(o.MIMEType, "video/") {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(o.Name), "."))
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
