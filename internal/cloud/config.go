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

// Package cloud defines the configuration of the summarizer and the clients it uses to
// reach Google Cloud and the Gemini API.
//
// Structs:
//   - Config: the root configuration, decoded from TOML or YAML.
//   - SummarySettings: model, chunking and output options for every video.
//   - PacingSettings, RetrySettings: spacing of remote calls and the chunk retry policy.
//   - RemoteSettings: where chunks are uploaded before generation.
//   - Storage: GCS buckets for published summaries and listen-mode downloads.
//   - VertexAiLLMModel: generation parameters for a logical model.
//   - TopicSubscription, BigQueryDataSource, RedisSettings: optional sinks and sources.
package cloud

import (
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/pacing"
	"google.golang.org/genai"
)

// Defaults applied by Validate when a value is left empty.
const (
	DefaultModel            = "gemini-2.0-flash"
	DefaultMaxChunkDuration = 900 * time.Second
	DefaultOverlapDuration  = 60 * time.Second
	DefaultTimeoutPerChunk  = 1200 * time.Second
	DefaultOutputDir        = "."
	DefaultScratchRoot      = ".tmp_chunks"
	DefaultUploadPacing     = 4 * time.Second
	DefaultFlashPacing      = 4 * time.Second
	DefaultModelPacing      = 12 * time.Second
	DefaultRetryAttempts    = 2
	DefaultRetryBackoff     = 10 * time.Second
	DefaultPollInterval     = 5 * time.Second
	DefaultAgent            = "summarizer"
	DefaultApplicationName  = "video-summarizer"
	DefaultSignedURLTTL     = 24 * time.Hour
	DefaultHistoryLimit     = 50

	BackendGemini = "gemini"
	BackendVertex = "vertex"

	RemoteStoreFiles = "files"
	RemoteStoreGCS   = "gcs"
)

// DefaultSafetySettings leaves every harm category unblocked. Inputs are the
// operator's own videos.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
}

// BigQueryDataSource names the table video outcomes are appended to.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset" yaml:"dataset"`
	OutcomeTable string `toml:"outcome_table" yaml:"outcome_table"`
}

// PromptTemplates holds the prompts sent with each chunk and with the merged summary.
// Empty values fall back to the built-in prompts.
type PromptTemplates struct {
	ChunkSummary string `toml:"chunk_summary" yaml:"chunk_summary"`
	Refine       string `toml:"refine" yaml:"refine"`
}

// VertexAiLLMModel holds generation parameters for a logical model name.
type VertexAiLLMModel struct {
	Model              string  `toml:"model" yaml:"model"`                             // Used when summary.model is empty.
	SystemInstructions string  `toml:"system_instructions" yaml:"system_instructions"` // Optional system instruction.
	Temperature        float32 `toml:"temperature" yaml:"temperature"`
	TopP               float32 `toml:"top_p" yaml:"top_p"`
	TopK               float32 `toml:"top_k" yaml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens" yaml:"max_tokens"`
	RateLimit          int     `toml:"rate_limit" yaml:"rate_limit"` // Requests per minute, 0 for unlimited.
}

// TopicSubscription is a Pub/Sub subscription receiving GCS notifications.
type TopicSubscription struct {
	Name             string `toml:"name" yaml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic" yaml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds" yaml:"timeout_in_seconds"`
}

// Storage configures the GCS buckets used outside of chunk uploads.
type Storage struct {
	SummaryBucket string        `toml:"summary_bucket" yaml:"summary_bucket"` // Publishes summaries when set.
	SummaryPrefix string        `toml:"summary_prefix" yaml:"summary_prefix"`
	SignURLs      bool          `toml:"sign_urls" yaml:"sign_urls"`
	SignedURLTTL  time.Duration `toml:"signed_url_ttl" yaml:"signed_url_ttl"`
}

// SummarySettings are the per-video options. Command line flags override them.
type SummarySettings struct {
	Model            string        `toml:"model" yaml:"model"`
	Agent            string        `toml:"agent" yaml:"agent"` // Key into AgentModels.
	MaxChunkDuration time.Duration `toml:"max_chunk_duration" yaml:"max_chunk_duration"`
	OverlapDuration  time.Duration `toml:"overlap_duration" yaml:"overlap_duration"`
	TimeoutPerChunk  time.Duration `toml:"timeout_per_chunk" yaml:"timeout_per_chunk"`
	OutputDir        string        `toml:"output_dir" yaml:"output_dir"`
	ScratchRoot      string        `toml:"scratch_root" yaml:"scratch_root"`
	KeepTempFiles    bool          `toml:"keep_temp_files" yaml:"keep_temp_files"`
}

// PacingSettings space consecutive uploads and summaries of one video.
type PacingSettings struct {
	Mode           string        `toml:"mode" yaml:"mode"` // "fixed" or "rate".
	Upload         time.Duration `toml:"upload" yaml:"upload"`
	SummaryFlash   time.Duration `toml:"summary_flash" yaml:"summary_flash"`
	SummaryDefault time.Duration `toml:"summary_default" yaml:"summary_default"`
}

// RetrySettings is the chunk summary retry policy. A chunk is retried exactly once, so
// MaxAttempts only accepts DefaultRetryAttempts; the backoff is tunable.
type RetrySettings struct {
	MaxAttempts int           `toml:"max_attempts" yaml:"max_attempts"`
	Backoff     time.Duration `toml:"backoff" yaml:"backoff"`
}

// RemoteSettings selects where chunks are uploaded.
type RemoteSettings struct {
	Store        string        `toml:"store" yaml:"store"` // "files" or "gcs".
	PollInterval time.Duration `toml:"poll_interval" yaml:"poll_interval"`
	Bucket       string        `toml:"bucket" yaml:"bucket"` // Required for "gcs".
	Prefix       string        `toml:"prefix" yaml:"prefix"`
}

// RedisSettings enable the completed-video set used by watch and listen.
type RedisSettings struct {
	Address  string        `toml:"address" yaml:"address"`
	Password string        `toml:"password" yaml:"password"`
	DB       int           `toml:"db" yaml:"db"`
	Key      string        `toml:"key" yaml:"key"`
	TTL      time.Duration `toml:"ttl" yaml:"ttl"`
}

// Config is the root configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name" yaml:"name"`
		GoogleProjectId           string `toml:"google_project_id" yaml:"google_project_id"`
		GoogleLocation            string `toml:"location" yaml:"location"`
		Backend                   string `toml:"backend" yaml:"backend"` // "gemini" or "vertex".
		CredentialsFile           string `toml:"credentials_file" yaml:"credentials_file"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email" yaml:"signer_service_account_email"`
	} `toml:"application" yaml:"application"`
	Summary            SummarySettings              `toml:"summary" yaml:"summary"`
	Pacing             PacingSettings               `toml:"pacing" yaml:"pacing"`
	Retry              RetrySettings                `toml:"retry" yaml:"retry"`
	Remote             RemoteSettings               `toml:"remote" yaml:"remote"`
	Storage            Storage                      `toml:"storage" yaml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source" yaml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates" yaml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions" yaml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models" yaml:"agent_models"`
	Redis              RedisSettings                `toml:"redis" yaml:"redis"`
	Server             struct {
		Address      string `toml:"address" yaml:"address"`
		HistoryLimit int    `toml:"history_limit" yaml:"history_limit"`
	} `toml:"server" yaml:"server"`
	Logging struct {
		Level string `toml:"level" yaml:"level"`
		File  string `toml:"file" yaml:"file"`
	} `toml:"logging" yaml:"logging"`
	Telemetry struct {
		Enabled bool `toml:"enabled" yaml:"enabled"`
	} `toml:"telemetry" yaml:"telemetry"`
}

// NewConfig returns a Config with its maps initialized. Chunk durations are preset
// here rather than in Validate because an explicit zero disables splitting.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Summary.MaxChunkDuration = DefaultMaxChunkDuration
	c.Summary.OverlapDuration = DefaultOverlapDuration
	return c
}

// Validate fills defaults and rejects settings no video could be processed with.
// Errors are classified as configuration errors.
func (c *Config) Validate() error {
	if c.Application.Name == "" {
		c.Application.Name = DefaultApplicationName
	}
	s := &c.Summary
	if s.Agent == "" {
		s.Agent = DefaultAgent
	}
	if s.Model == "" {
		s.Model = c.Agent().Model
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.ScratchRoot == "" {
		s.ScratchRoot = DefaultScratchRoot
	}
	if s.TimeoutPerChunk == 0 {
		s.TimeoutPerChunk = DefaultTimeoutPerChunk
	}
	if s.MaxChunkDuration < 0 {
		return model.NewConfigurationError("max_chunk_duration must not be negative, got %s", s.MaxChunkDuration)
	}
	if s.OverlapDuration < 0 {
		return model.NewConfigurationError("overlap_duration must not be negative, got %s", s.OverlapDuration)
	}
	if s.TimeoutPerChunk < 0 {
		return model.NewConfigurationError("timeout_per_chunk must be positive, got %s", s.TimeoutPerChunk)
	}
	if s.MaxChunkDuration > 0 && s.OverlapDuration >= s.MaxChunkDuration {
		return model.NewConfigurationError("overlap_duration (%s) must be less than max_chunk_duration (%s)",
			s.OverlapDuration, s.MaxChunkDuration)
	}

	p := &c.Pacing
	if p.Mode == "" {
		p.Mode = "fixed"
	}
	if p.Mode != "fixed" && p.Mode != "rate" {
		return model.NewConfigurationError("unknown pacing mode %q", p.Mode)
	}
	if p.Upload == 0 {
		p.Upload = DefaultUploadPacing
	}
	if p.SummaryFlash == 0 {
		p.SummaryFlash = DefaultFlashPacing
	}
	if p.SummaryDefault == 0 {
		p.SummaryDefault = DefaultModelPacing
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryAttempts
	}
	if c.Retry.MaxAttempts != DefaultRetryAttempts {
		return model.NewConfigurationError("retry.max_attempts must be %d (one retry), got %d", DefaultRetryAttempts, c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff == 0 {
		c.Retry.Backoff = DefaultRetryBackoff
	}

	if c.Application.Backend == "" {
		c.Application.Backend = BackendGemini
	}
	if c.Application.Backend != BackendGemini && c.Application.Backend != BackendVertex {
		return model.NewConfigurationError("unknown backend %q", c.Application.Backend)
	}
	if c.Application.Backend == BackendVertex && c.Application.GoogleProjectId == "" {
		return model.NewConfigurationError("the vertex backend requires application.google_project_id")
	}

	r := &c.Remote
	if r.Store == "" {
		if c.Application.Backend == BackendVertex {
			r.Store = RemoteStoreGCS
		} else {
			r.Store = RemoteStoreFiles
		}
	}
	switch r.Store {
	case RemoteStoreFiles:
		if c.Application.Backend == BackendVertex {
			return model.NewConfigurationError("the File API store is not available on the vertex backend")
		}
	case RemoteStoreGCS:
		if r.Bucket == "" {
			return model.NewConfigurationError("remote.bucket is required for the gcs store")
		}
	default:
		return model.NewConfigurationError("unknown remote store %q", r.Store)
	}
	if r.PollInterval == 0 {
		r.PollInterval = DefaultPollInterval
	}

	if c.Storage.SignURLs {
		if c.Storage.SummaryBucket == "" {
			return model.NewConfigurationError("storage.sign_urls requires storage.summary_bucket")
		}
		if c.Application.SignerServiceAccountEmail == "" {
			return model.NewConfigurationError("storage.sign_urls requires application.signer_service_account_email")
		}
	}
	if c.Storage.SignedURLTTL == 0 {
		c.Storage.SignedURLTTL = DefaultSignedURLTTL
	}
	if c.BigQueryDataSource.DatasetName != "" && c.BigQueryDataSource.OutcomeTable == "" {
		c.BigQueryDataSource.OutcomeTable = "video_outcomes"
	}
	if c.Redis.Address != "" && c.Redis.Key == "" {
		c.Redis.Key = "summarizer:completed"
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = DefaultHistoryLimit
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "summarizer.log"
	}
	return nil
}

// Settings snapshots the per-video options.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		Model:            c.Summary.Model,
		MaxChunkDuration: c.Summary.MaxChunkDuration,
		OverlapDuration:  c.Summary.OverlapDuration,
		CallTimeout:      c.Summary.TimeoutPerChunk,
		KeepTempFiles:    c.Summary.KeepTempFiles,
		UploadInterval:   c.Pacing.Upload,
		SummaryInterval:  pacing.SummaryInterval(c.Summary.Model, c.Pacing.SummaryFlash, c.Pacing.SummaryDefault),
		RetryAttempts:    c.Retry.MaxAttempts,
		RetryBackoff:     c.Retry.Backoff,
	}
}

// Agent returns the generation parameters for the configured agent, or an empty set.
func (c *Config) Agent() VertexAiLLMModel {
	if c.AgentModels == nil {
		return VertexAiLLMModel{}
	}
	return c.AgentModels[c.Summary.Agent]
}
