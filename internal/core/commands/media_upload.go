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
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/pacing"
)

// MediaUpload sends the chunks to the remote store in index order, one at a time,
// pausing between two uploads. Every uploaded asset is tracked as active before the
// next upload starts, so a later failure still cleans it up.
type MediaUpload struct {
	stageCommand
	store RemoteStore
	pacer pacing.Pacer
}

func NewMediaUpload(name string, store RemoteStore, pacer pacing.Pacer) *MediaUpload {
	return &MediaUpload{stageCommand: newStageCommand(name, model.KindUpload), store: store, pacer: pacer}
}

func (c *MediaUpload) Execute(context cor.Context) {
	job, tracker := JobFrom(context)
	ctx := context.GetContext()

	artifacts := tracker.Artifacts()
	for i, artifact := range artifacts {
		if i > 0 && c.pacer != nil {
			c.pacer.Pause()
		}
		asset, err := c.store.Upload(ctx, artifact.Path, artifact.Range.Index)
		if err != nil {
			c.failStage(context, job, tracker, fmt.Errorf("failed to upload chunk %d: %w", artifact.Range.Index, err))
			return
		}
		tracker.TrackAsset(asset)
		slog.InfoContext(ctx, "uploaded chunk", "video", job.Base, "chunk", artifact.Range.Index, "remote", asset.Name, "mime", asset.MIMEType)
	}

	if !c.advance(context, job, tracker, model.StateUploaded) {
		return
	}
	c.Succeed(context)
}
