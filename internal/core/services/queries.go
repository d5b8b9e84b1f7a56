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

// Package services provides the outcome sinks and lookups backed by Google Cloud
// and Redis: the BigQuery outcome table, signed links to published summaries and
// the set of completed videos.
package services

const (
	// QryOutcomeHistory returns the most recent outcomes first.
	//
	// Placeholders:
	//   - `%s`: fully qualified name of the outcome table.
	//
	// Parameters:
	//   - `@limit`: maximum number of rows.
	QryOutcomeHistory = "SELECT * FROM `%s` ORDER BY finished_at DESC LIMIT @limit"

	// QryOutcomesByVideo returns every recorded run of one video, most recent first.
	QryOutcomesByVideo = "SELECT * FROM `%s` WHERE video_id = @video_id ORDER BY finished_at DESC"
)
