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

package cor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-video-summary/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepCommand appends its name to a shared trace and optionally fails.
type stepCommand struct {
	cor.BaseCommand
	trace *[]string
	fail  error
	emit  interface{}
}

func newStep(name string, trace *[]string) *stepCommand {
	return &stepCommand{BaseCommand: *cor.NewBaseCommand(name), trace: trace}
}

func (s *stepCommand) IsExecutable(_ cor.Context) bool { return true }

func (s *stepCommand) Execute(ctx cor.Context) {
	*s.trace = append(*s.trace, s.GetName())
	if s.fail != nil {
		s.Fail(ctx, s.fail)
		return
	}
	if s.emit != nil {
		ctx.Add(cor.CtxOut, s.emit)
	}
	s.Succeed(ctx)
}

// echoCommand copies CtxIn into a named key so tests can observe piping.
type echoCommand struct {
	cor.BaseCommand
}

func (e *echoCommand) Execute(ctx cor.Context) {
	ctx.Add("seen", ctx.Get(e.GetInputParam()))
}

func newContext() cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	return ctx
}

func TestChainPipesOutputToNextInput(t *testing.T) {
	var trace []string
	producer := newStep("producer", &trace)
	producer.emit = "payload"

	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(producer)
	chain.AddCommand(&echoCommand{BaseCommand: *cor.NewBaseCommand("echo")})

	ctx := newContext()
	chain.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "payload", ctx.Get("seen"))
	assert.Nil(t, ctx.Get(cor.CtxOut))
}

func TestChainStopsAfterFailure(t *testing.T) {
	var trace []string
	first := newStep("first", &trace)
	second := newStep("second", &trace)
	second.fail = errors.New("boom")
	third := newStep("third", &trace)

	chain := cor.NewBaseChain("stop")
	chain.AddCommand(first).AddCommand(second).AddCommand(third)

	ctx := newContext()
	chain.Execute(ctx)

	assert.Equal(t, []string{"first", "second"}, trace)
	require.True(t, ctx.HasErrors())
	assert.EqualError(t, ctx.GetErrors()["second"], "boom")
}

func TestChainContinueOnFailure(t *testing.T) {
	var trace []string
	first := newStep("first", &trace)
	first.fail = errors.New("boom")
	second := newStep("second", &trace)

	chain := cor.NewBaseChain("continue").ContinueOnFailure(true)
	chain.AddCommand(first).AddCommand(second)

	chain.Execute(newContext())
	assert.Equal(t, []string{"first", "second"}, trace)
}

func TestFinalizersRunOnceAfterFailure(t *testing.T) {
	var trace []string
	failing := newStep("failing", &trace)
	failing.fail = errors.New("boom")
	skipped := newStep("skipped", &trace)
	cleanup := newStep("cleanup", &trace)

	chain := cor.NewBaseChain("finalize")
	chain.AddCommand(failing).AddCommand(skipped).AddFinalizer(cleanup)

	ctx := newContext()
	chain.Execute(ctx)

	assert.Equal(t, []string{"failing", "cleanup"}, trace)
	assert.Len(t, ctx.GetErrors(), 1)
}

func TestFinalizersRunOnSuccess(t *testing.T) {
	var trace []string
	chain := cor.NewBaseChain("finalize-ok")
	chain.AddCommand(newStep("work", &trace))
	chain.AddFinalizer(newStep("cleanup-a", &trace))
	chain.AddFinalizer(newStep("cleanup-b", &trace))

	ctx := newContext()
	chain.Execute(ctx)

	assert.Equal(t, []string{"work", "cleanup-a", "cleanup-b"}, trace)
	assert.False(t, ctx.HasErrors())
}

func TestChainRestoresParentContext(t *testing.T) {
	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "parent")

	var trace []string
	chain := cor.NewBaseChain("restore")
	chain.AddCommand(newStep("work", &trace))

	ctx := cor.NewBaseContext()
	ctx.SetContext(parent)
	chain.Execute(ctx)

	assert.Equal(t, parent, ctx.GetContext())
}

func TestFirstErrorFollowsInsertionOrder(t *testing.T) {
	ctx := cor.NewBaseContext()
	assert.Nil(t, cor.FirstError(ctx))

	ctx.AddError("zeta", errors.New("first"))
	ctx.AddError("alpha", errors.New("second"))
	assert.EqualError(t, cor.FirstError(ctx), "first")
}
