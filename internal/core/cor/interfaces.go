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

// Package cor (Chain of Responsibility) is the small workflow framework the video
// pipeline is assembled from. A Command is one stage, a Chain runs stages in order and
// a Context carries the state of one execution between them.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain pipes between consecutive commands: after
// each command, the value found under CtxOut becomes the next command's CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag shared by the commands of one execution.
type Context interface {
	// SetContext replaces the Go context carried for cancellation and tracing.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records err under key, typically the failing command's name.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	// AddTempFile registers a file that Close removes.
	AddTempFile(file string)
	GetTempFiles() []string

	// Close removes registered temp files. Defer it where the Context is created.
	Close()
}

// Executable is anything with an Execute step.
type Executable interface {
	Execute(context Context)
}

// Command is one instrumented stage of a workflow.
type Command interface {
	Executable

	GetName() string

	// GetInputParam is the key the command reads its primary input from.
	GetInputParam() string
	// GetOutputParam is the key the command writes its primary output to.
	GetOutputParam() string

	// IsExecutable is the precondition checked before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands.
type Chain interface {
	Command

	// ContinueOnFailure keeps running the remaining commands after one records an error.
	ContinueOnFailure(bool) Chain

	AddCommand(command Command) Chain

	// AddFinalizer registers a command that runs exactly once after the main commands,
	// whether or not they failed. Finalizers run even when the context has errors.
	AddFinalizer(command Command) Chain
}
