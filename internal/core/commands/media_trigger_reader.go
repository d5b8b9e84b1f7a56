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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
)

// MediaTriggerToGCSObject decodes a GCS notification into a cloud.GCSObject. Messages
// that are not about a finalized video are consumed without output so the rest of
// the chain is skipped and the message is acknowledged.
type MediaTriggerToGCSObject struct {
	cor.BaseCommand
	extensions []string
}

func NewMediaTriggerToGCSObject(name string, extensions []string) *MediaTriggerToGCSObject {
	return &MediaTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name), extensions: extensions}
}

// ParseNotification decodes a GCS notification payload.
func ParseNotification(in string) (*cloud.GCSObject, error) {
	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GCS notification: %w", err)
	}
	if out.Bucket == "" || out.Name == "" {
		return nil, fmt.Errorf("GCS notification without bucket or name")
	}
	return &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType, Generation: out.Generation}, nil
}

func (c *MediaTriggerToGCSObject) Execute(context cor.Context) {
	in, _ := context.Get(c.GetInputParam()).(string)

	msg, err := ParseNotification(in)
	if err != nil {
		slog.WarnContext(context.GetContext(), "dropping malformed notification", "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}
	if !msg.IsVideo(c.extensions) {
		slog.InfoContext(context.GetContext(), "ignoring non video object", "object", msg.URI())
		c.Succeed(context)
		return
	}

	context.Add(cloud.GCSObjectKey, msg)
	context.Add(c.GetOutputParam(), msg)
	c.Succeed(context)
}
