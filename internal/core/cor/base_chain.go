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

// Package cor (Chain of Responsibility) provides the workflow building blocks. This
// file defines BaseChain, the default Chain.
//
// Logic Flow:
//  1. A span is opened for the whole chain.
//  2. Each command gets a child span. A command is skipped, and the loop stops, once
//     the context has errors unless continueOnFailure is set.
//  3. After each command, CtxOut is moved into CtxIn for the next command.
//  4. Finalizers run in registration order, each exactly once, regardless of errors.
//     Their span status reflects only errors they added themselves.
//  5. The chain span is closed with the overall status.
package cor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands sequentially and then its finalizers.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // Keep going after a command records an error.
	commands          []Command // Main commands, in order.
	finalizers        []Command // Always-run commands, in order.
}

// NewBaseChain creates an empty chain.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

func (c *BaseChain) AddFinalizer(command Command) Chain {
	c.finalizers = append(c.finalizers, command)
	return c
}

// IsExecutable only requires a Go context; commands check their own inputs.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute runs the chain.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			_, skipped := c.Tracer.Start(outerCtx, command.GetName())
			skipped.SetStatus(codes.Error, "previous error on chain; skipping execution")
			skipped.End()
			break
		}
		c.run(chCtx, outerCtx, command)
		c.pipe(chCtx)
	}

	for _, finalizer := range c.finalizers {
		c.run(chCtx, outerCtx, finalizer)
	}

	chCtx.SetContext(parentCtx)
	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	}
}

// run executes one command under its own span. The span status reflects only the
// errors the command itself recorded.
func (c *BaseChain) run(chCtx Context, outerCtx context.Context, command Command) {
	errorsBefore := len(chCtx.GetErrors())
	commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
	defer commandSpan.End()

	if !command.IsExecutable(chCtx) {
		commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		return
	}
	chCtx.SetContext(commandContext)
	command.Execute(chCtx)
	chCtx.SetContext(outerCtx)

	if len(chCtx.GetErrors()) > errorsBefore {
		commandSpan.SetStatus(codes.Error, "error during command execution")
	} else {
		commandSpan.SetStatus(codes.Ok, "command completed successfully")
	}
}

// pipe moves the last command's output into the next command's input.
func (c *BaseChain) pipe(chCtx Context) {
	out := chCtx.Get(CtxOut)
	chCtx.Remove(CtxIn)
	if out != nil {
		chCtx.Add(CtxIn, out)
	}
	chCtx.Remove(CtxOut)
}
