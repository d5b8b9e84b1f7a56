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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-video-summary/internal/api"
	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/services"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/workflow"
)

// Mode is the entry point selected by the first argument.
type Mode string

const (
	ModeRun    Mode = "run"
	ModeWatch  Mode = "watch"
	ModeListen Mode = "listen"
)

// Options are the parsed command line. Only flags that were given override the
// configuration file.
type Options struct {
	Path       string
	ConfigFile string
	Runtime    string
	Report     string

	Model            string
	MaxChunkDuration time.Duration
	OverlapDuration  time.Duration
	TimeoutPerChunk  time.Duration
	OutputDir        string
	ScratchRoot      string
	KeepTempFiles    bool

	set map[string]bool
}

// secondsValue is a duration flag accepting "900", "900s" or "15m".
type secondsValue struct {
	d *time.Duration
}

func (v secondsValue) String() string {
	if v.d == nil {
		return ""
	}
	return v.d.String()
}

func (v secondsValue) Set(s string) error {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*v.d = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*v.d = d
	return nil
}

// ParseArgs splits the mode from its flags and positional argument. Usage errors
// are configuration errors.
func ParseArgs(args []string) (Mode, *Options, error) {
	mode := ModeRun
	if len(args) > 0 {
		switch Mode(args[0]) {
		case ModeRun, ModeWatch, ModeListen:
			mode = Mode(args[0])
			args = args[1:]
		}
	}

	opts := &Options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("summarizer "+string(mode), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.ConfigFile, "config", "", "configuration file (TOML or YAML)")
	fs.StringVar(&opts.Runtime, "runtime", "", "runtime overlay, e.g. local for .env.local.toml")
	fs.StringVar(&opts.Report, "report", "", "write a JSON batch report to this path")
	fs.StringVar(&opts.Model, "model", cloud.DefaultModel, "Gemini model name")
	opts.MaxChunkDuration = cloud.DefaultMaxChunkDuration
	fs.Var(secondsValue{&opts.MaxChunkDuration}, "max_chunk_duration", "maximum chunk length, 0 disables splitting")
	opts.OverlapDuration = cloud.DefaultOverlapDuration
	fs.Var(secondsValue{&opts.OverlapDuration}, "overlap_duration", "overlap between consecutive chunks")
	opts.TimeoutPerChunk = cloud.DefaultTimeoutPerChunk
	fs.Var(secondsValue{&opts.TimeoutPerChunk}, "timeout_per_chunk", "timeout of each generation call")
	fs.StringVar(&opts.OutputDir, "output_dir", cloud.DefaultOutputDir, "directory summaries are written to")
	fs.StringVar(&opts.ScratchRoot, "scratch_root", cloud.DefaultScratchRoot, "directory for chunks and partial summaries")
	fs.BoolVar(&opts.KeepTempFiles, "keep_temp_files", false, "keep chunks and partial summaries")

	if err := fs.Parse(args); err != nil {
		return mode, nil, model.NewConfigurationError("%v", err)
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	rest := fs.Args()
	switch mode {
	case ModeListen:
		if len(rest) != 0 {
			return mode, nil, model.NewConfigurationError("listen takes no arguments, got %s", strings.Join(rest, " "))
		}
	default:
		if len(rest) != 1 {
			return mode, nil, model.NewConfigurationError("%s expects exactly one path, got %d", mode, len(rest))
		}
		opts.Path = rest[0]
	}
	return mode, opts, nil
}

// Apply copies the flags that were given onto config.
func (o *Options) Apply(config *cloud.Config) {
	s := &config.Summary
	if o.set["model"] {
		s.Model = o.Model
	}
	if o.set["max_chunk_duration"] {
		s.MaxChunkDuration = o.MaxChunkDuration
	}
	if o.set["overlap_duration"] {
		s.OverlapDuration = o.OverlapDuration
	}
	if o.set["timeout_per_chunk"] {
		s.TimeoutPerChunk = o.TimeoutPerChunk
	}
	if o.set["output_dir"] {
		s.OutputDir = o.OutputDir
	}
	if o.set["scratch_root"] {
		s.ScratchRoot = o.ScratchRoot
	}
	if o.set["keep_temp_files"] {
		s.KeepTempFiles = o.KeepTempFiles
	}
}

// LoadConfig reads the explicit file given with --config, or the hierarchical
// .env files otherwise, applies the flags and validates the result.
func LoadConfig(opts *Options) (*cloud.Config, error) {
	config := cloud.NewConfig()
	var err error
	if opts.ConfigFile != "" {
		err = cloud.LoadConfigFile(opts.ConfigFile, config)
	} else {
		err = cloud.LoadConfig(config, opts.Runtime)
	}
	if err != nil {
		return nil, model.NewConfigurationError("%v", err)
	}
	opts.Apply(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// App holds everything a mode needs to process videos.
type App struct {
	Config   *cloud.Config
	Clients  *cloud.ServiceClients
	Workflow *workflow.VideoSummaryWorkflow
	Batch    *workflow.BatchRunner
	Outcomes *api.OutcomeLog
	// Seen is nil when no Redis address is configured.
	Seen workflow.CompletionChecker
	// History is nil when no outcome table is configured.
	History api.HistoryReader
}

// NewApp creates the clients, the sinks and the workflow for a validated config.
func NewApp(ctx context.Context, config *cloud.Config) (*App, error) {
	if err := os.MkdirAll(config.Summary.OutputDir, 0o755); err != nil {
		return nil, model.NewConfigurationError("cannot create output directory: %v", err)
	}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	app := &App{Config: config, Clients: clients, Outcomes: api.NewOutcomeLog(api.DefaultOutcomeLogSize)}

	deps, err := workflow.CollaboratorsFromConfig(config, clients)
	if err != nil {
		_ = clients.Close()
		return nil, err
	}
	app.Workflow, err = workflow.NewVideoSummaryWorkflow(deps, app.sinks()...)
	if err != nil {
		_ = clients.Close()
		return nil, err
	}
	app.Batch = workflow.NewBatchRunner(app.Workflow, config.Settings(), config.Summary.OutputDir, config.Summary.ScratchRoot)
	return app, nil
}

// sinks builds the outcome consumers enabled by the configuration. Publishing comes
// first so the recorded outcome carries the published URIs.
func (a *App) sinks() []cor.Command {
	config, clients := a.Config, a.Clients
	out := make([]cor.Command, 0, 3)

	if config.Storage.SummaryBucket != "" {
		var signer commands.URLSigner
		if config.Storage.SignURLs {
			signer = services.NewSummaryLinks(clients.IAMClient, config.Application.SignerServiceAccountEmail, config.Storage.SignedURLTTL)
		}
		out = append(out, commands.NewSummaryPublish("summary-publish", clients.StorageClient,
			config.Storage.SummaryBucket, config.Storage.SummaryPrefix, signer))
	}

	if clients.BiqQueryClient != nil {
		store := &services.OutcomeStore{
			BigqueryClient: clients.BiqQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			OutcomeTable:   config.BigQueryDataSource.OutcomeTable,
		}
		a.History = store
		out = append(out, commands.NewOutcomePersist("outcome-persist", store))
	}

	if clients.RedisClient != nil {
		seen := services.NewSeenStore(clients.RedisClient, config.Redis.Key, config.Redis.TTL)
		a.Seen = seen
		out = append(out, commands.NewMarkCompleted("mark-completed", seen))
	}
	return out
}

// Close releases the clients.
func (a *App) Close() {
	if err := a.Clients.Close(); err != nil {
		slog.Warn("failed to close clients", "error", err)
	}
}
