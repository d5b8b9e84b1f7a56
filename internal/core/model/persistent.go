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

package model

import (
	"time"
)

// OutcomeStatus is the terminal result of one video.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
	StatusSkipped   OutcomeStatus = "skipped"
)

// VideoOutcome is what the batch reports for a video. It is also the row shape of the
// BigQuery outcome table.
type VideoOutcome struct {
	VideoID       string        `json:"video_id" bigquery:"video_id"`
	RunID         string        `json:"run_id" bigquery:"run_id"`
	Path          string        `json:"path" bigquery:"path"`
	Base          string        `json:"base" bigquery:"base"`
	Model         string        `json:"model" bigquery:"model"`
	Status        OutcomeStatus `json:"status" bigquery:"status"`
	FinalState    VideoState    `json:"final_state" bigquery:"final_state"`
	FailedStage   VideoState    `json:"failed_stage,omitempty" bigquery:"failed_stage"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty" bigquery:"error_kind"`
	ErrorMessage  string        `json:"error_message,omitempty" bigquery:"error_message"`
	Chunks        int           `json:"chunks" bigquery:"chunks"`
	MergedPath    string        `json:"merged_path,omitempty" bigquery:"merged_path"`
	RefinedPath   string        `json:"refined_path,omitempty" bigquery:"refined_path"`
	PublishedURIs []string      `json:"published_uris,omitempty" bigquery:"published_uris"`
	SignedURLs    []string      `json:"signed_urls,omitempty" bigquery:"-"`
	StartedAt     time.Time     `json:"started_at" bigquery:"started_at"`
	FinishedAt    time.Time     `json:"finished_at" bigquery:"finished_at"`
}

// Succeeded reports whether the video reached DONE.
func (o *VideoOutcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// BatchSummary counts outcomes by status.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BatchReport collects the outcomes of one run.
type BatchReport struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    BatchSummary    `json:"summary"`
	Items      []*VideoOutcome `json:"items"`
}

// NewBatchReport starts an empty report.
func NewBatchReport(runID string, startedAt time.Time) *BatchReport {
	return &BatchReport{RunID: runID, StartedAt: startedAt, Items: make([]*VideoOutcome, 0)}
}

// Add appends an outcome.
func (r *BatchReport) Add(o *VideoOutcome) {
	r.Items = append(r.Items, o)
}

// Finalize stamps the finish time and recomputes the summary counts.
func (r *BatchReport) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.Summary = BatchSummary{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusSucceeded:
			r.Summary.Succeeded++
		case StatusFailed:
			r.Summary.Failed++
		case StatusSkipped:
			r.Summary.Skipped++
		}
	}
}

// HasFailures reports whether any video failed.
func (r *BatchReport) HasFailures() bool {
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			return true
		}
	}
	return false
}
