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

// Command summarizer turns videos into Markdown summaries with Gemini.
//
// Usage:
//
//	summarizer [run] [flags] <file or directory>
//	summarizer watch [flags] <directory>
//	summarizer listen [flags]
//
// run processes a file, or every video under a directory, and exits with 1 when a
// video failed and 2 on a configuration error. watch processes videos as they are
// created in a directory. listen processes videos announced by GCS notifications on
// the configured Pub/Sub subscriptions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/telemetry"
)

const (
	exitOK            = 0
	exitVideoFailed   = 1
	exitConfiguration = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	mode, opts, err := ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}

	config, err := LoadConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}

	closeLog, err := telemetry.SetupLogging(config.Logging.Level, config.Logging.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}
	defer closeLog()
	slog.Info("logging initialized", "mode", mode, "level", config.Logging.Level)

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("failed to setup OpenTelemetry", "error", err)
		return exitConfiguration
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	app, err := NewApp(ctx, config)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	defer app.Close()

	switch mode {
	case ModeWatch:
		err = RunWatch(ctx, app, opts.Path)
	case ModeListen:
		err = RunListen(ctx, app)
	default:
		return RunBatch(ctx, app, opts, stdout)
	}
	if err != nil {
		slog.Error("stopped", "mode", mode, "error", err)
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	if errors.Is(err, model.KindConfiguration) {
		return exitConfiguration
	}
	return exitVideoFailed
}
