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

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"google.golang.org/api/iterator"
)

// OutcomeStore appends video outcomes to a BigQuery table and reads them back.
type OutcomeStore struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	OutcomeTable   string
}

// GetFQN is the table name in standard SQL form, e.g. "project.dataset.table".
func (s *OutcomeStore) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.OutcomeTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Record streams one outcome into the table. Re-sending the same outcome of the
// same run is deduplicated by BigQuery on a best effort basis.
func (s *OutcomeStore) Record(ctx context.Context, outcome *model.VideoOutcome) error {
	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.OutcomeTable).Inserter()
	if err := inserter.Put(ctx, OutcomeRow{Outcome: outcome}); err != nil {
		return fmt.Errorf("failed to insert outcome of %s: %w", outcome.Base, err)
	}
	return nil
}

// History returns up to limit outcomes, most recent first.
func (s *OutcomeStore) History(ctx context.Context, limit int) ([]*model.VideoOutcome, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryOutcomeHistory, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	return s.read(ctx, q)
}

// ByVideo returns every recorded run of a video, most recent first.
func (s *OutcomeStore) ByVideo(ctx context.Context, videoID string) ([]*model.VideoOutcome, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryOutcomesByVideo, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "video_id", Value: videoID}}
	return s.read(ctx, q)
}

func (s *OutcomeStore) read(ctx context.Context, q *bigquery.Query) ([]*model.VideoOutcome, error) {
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.VideoOutcome, 0)
	for {
		var rec OutcomeRecord
		err := itr.Next(&rec)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec.ToOutcome())
	}
	return out, nil
}

// OutcomeRow saves an outcome as a table row. The insert id makes retried inserts
// of the same run idempotent.
type OutcomeRow struct {
	Outcome *model.VideoOutcome
}

func (r OutcomeRow) Save() (map[string]bigquery.Value, string, error) {
	o := r.Outcome
	published := make([]bigquery.Value, 0, len(o.PublishedURIs))
	for _, uri := range o.PublishedURIs {
		published = append(published, uri)
	}
	row := map[string]bigquery.Value{
		"video_id":       o.VideoID,
		"run_id":         o.RunID,
		"path":           o.Path,
		"base":           o.Base,
		"model":          o.Model,
		"status":         string(o.Status),
		"final_state":    string(o.FinalState),
		"failed_stage":   string(o.FailedStage),
		"error_kind":     string(o.ErrorKind),
		"error_message":  o.ErrorMessage,
		"chunks":         o.Chunks,
		"merged_path":    o.MergedPath,
		"refined_path":   o.RefinedPath,
		"published_uris": published,
		"started_at":     o.StartedAt,
		"finished_at":    o.FinishedAt,
	}
	return row, o.VideoID + "/" + o.RunID, nil
}

// OutcomeRecord is a table row as read back by a query.
type OutcomeRecord struct {
	VideoID       string    `bigquery:"video_id"`
	RunID         string    `bigquery:"run_id"`
	Path          string    `bigquery:"path"`
	Base          string    `bigquery:"base"`
	Model         string    `bigquery:"model"`
	Status        string    `bigquery:"status"`
	FinalState    string    `bigquery:"final_state"`
	FailedStage   string    `bigquery:"failed_stage"`
	ErrorKind     string    `bigquery:"error_kind"`
	ErrorMessage  string    `bigquery:"error_message"`
	Chunks        int       `bigquery:"chunks"`
	MergedPath    string    `bigquery:"merged_path"`
	RefinedPath   string    `bigquery:"refined_path"`
	PublishedURIs []string  `bigquery:"published_uris"`
	StartedAt     time.Time `bigquery:"started_at"`
	FinishedAt    time.Time `bigquery:"finished_at"`
}

func (r *OutcomeRecord) ToOutcome() *model.VideoOutcome {
	return &model.VideoOutcome{
		VideoID:       r.VideoID,
		RunID:         r.RunID,
		Path:          r.Path,
		Base:          r.Base,
		Model:         r.Model,
		Status:        model.OutcomeStatus(r.Status),
		FinalState:    model.VideoState(r.FinalState),
		FailedStage:   model.VideoState(r.FailedStage),
		ErrorKind:     model.ErrorKind(r.ErrorKind),
		ErrorMessage:  r.ErrorMessage,
		Chunks:        r.Chunks,
		MergedPath:    r.MergedPath,
		RefinedPath:   r.RefinedPath,
		PublishedURIs: r.PublishedURIs,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
}
