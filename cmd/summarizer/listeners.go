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
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jaycherian/gcp-go-video-summary/internal/api"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/workflow"
)

// serialCommand lets several subscriptions share one command while keeping videos
// strictly sequential.
type serialCommand struct {
	cor.Command
	mu sync.Mutex
}

func (s *serialCommand) Execute(context cor.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Command.Execute(context)
}

// ServeStatus starts the status API when an address is configured. The returned
// function waits for the server to stop after ctx is cancelled.
func (a *App) ServeStatus(ctx context.Context) (wait func()) {
	addr := a.Config.Server.Address
	if addr == "" {
		return func() {}
	}
	router := api.NewRouter(a.Config.Application.Name, a.Outcomes, a.History, a.Config.Server.HistoryLimit)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := api.Serve(ctx, addr, router); err != nil {
			slog.ErrorContext(ctx, "status server failed", "address", addr, "error", err)
		}
	}()
	return func() { <-done }
}

// RunWatch summarizes every video created in dir until ctx is cancelled.
func RunWatch(ctx context.Context, app *App, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return model.NewConfigurationError("cannot watch %s: %v", dir, err)
	}
	if !info.IsDir() {
		return model.NewConfigurationError("cannot watch %s: not a directory", dir)
	}

	watcher := workflow.NewWatcher(dir, app.Batch, app.Seen, workflow.DefaultWatchQueueSize)
	watcher.OnOutcome = app.record

	wait := app.ServeStatus(ctx)
	err = watcher.Start(ctx)
	wait()
	return err
}

// SetupListeners attaches the trigger workflow to every configured subscription and
// starts receiving.
func SetupListeners(ctx context.Context, app *App) error {
	listeners := app.Clients.PubSubListeners
	if len(listeners) == 0 {
		return model.NewConfigurationError("listen mode requires at least one topic subscription")
	}

	trigger := workflow.NewMediaTriggerWorkflow(app.Clients.StorageClient, app.Batch, app.Seen, app.Config.Summary.ScratchRoot)
	trigger.Summary.OnOutcome = app.record
	command := &serialCommand{Command: trigger}

	for key, listener := range listeners {
		listener.SetCommand(command)
		listener.Listen(ctx)
		slog.InfoContext(ctx, "listener started", "topic", key)
	}
	return nil
}

// RunListen summarizes the videos announced on the subscriptions until ctx is
// cancelled and the messages in progress are handled.
func RunListen(ctx context.Context, app *App) error {
	if err := SetupListeners(ctx, app); err != nil {
		return err
	}
	wait := app.ServeStatus(ctx)
	for _, listener := range app.Clients.PubSubListeners {
		<-listener.Done()
	}
	wait()
	return nil
}

func (a *App) record(outcome *model.VideoOutcome) {
	a.Outcomes.Add(outcome)
	fmt.Fprintln(os.Stdout, FormatOutcome(outcome))
}
