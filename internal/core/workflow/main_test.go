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

package workflow_test

import (
	"context"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-video-summary/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summary/internal/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const tName = "github.com/jaycherian/gcp-go-video-summary/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

// TestMain installs logging and local telemetry providers so the spans and counters
// of the workflow commands are recorded during the tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	if _, err := telemetry.SetupLogging("warn", ""); err != nil {
		panic(err)
	}

	config := cloud.NewConfig()
	config.Application.Name = "video-summary-tests"
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		panic(err)
	}

	ctx, span := tracer.Start(ctx, "workflow-tests")
	logger.InfoContext(ctx, "running workflow tests")
	code := m.Run()
	span.End()

	_ = shutdown(context.Background())
	os.Exit(code)
}
