// Copyright 2025 The Arcflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agentloop

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
	"github.com/arcflow-run/arcflow/pkg/tools"
	"github.com/arcflow-run/arcflow/pkg/workflow"
)

type addArgs struct {
	A int `json:"a" jsonschema:"required"`
	B int `json:"b" jsonschema:"required"`
}

func addTool(called *bool) tools.Tool {
	return tools.Wrap("add", "add two numbers", false, func(ctx context.Context, args addArgs, callID string) (tools.Result, error) {
		*called = true
		return tools.Result{Text: "3"}, nil
	})
}

func noopTool() tools.Tool {
	return tools.Wrap("noop", "does nothing", false, func(ctx context.Context, args struct{}, callID string) (tools.Result, error) {
		return tools.Result{Text: "ok"}, nil
	})
}

// scriptedProvider replays a fixed sequence of event scripts, one per
// Stream call, mirroring pkg/llm's own test double.
type scriptedProvider struct {
	calls   int
	scripts [][]llm.Event
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	idx := p.calls
	p.calls++
	return func(yield func(llm.Event, error) bool) {
		if idx >= len(p.scripts) {
			return
		}
		for _, ev := range p.scripts[idx] {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func textScript(text string) []llm.Event {
	return []llm.Event{
		{Type: llm.EventTextStart},
		{Type: llm.EventTextDelta, Delta: text},
		{Type: llm.EventTextEnd},
		{Type: llm.EventFinish, FinishReason: llm.FinishStop},
	}
}

// emptyFinishScript produces a finish event with no preceding text or
// tool-call parts, exercising a step that yields zero llm.Parts.
func emptyFinishScript() []llm.Event {
	return []llm.Event{
		{Type: llm.EventFinish, FinishReason: llm.FinishStop},
	}
}

func toolCallScript(toolName, callID, argsJSON string) []llm.Event {
	return []llm.Event{
		{Type: llm.EventToolInputStart, ToolCallID: callID, ToolName: toolName},
		{Type: llm.EventToolInputDelta, ToolCallID: callID, Delta: argsJSON},
		{Type: llm.EventToolCall, ToolCallID: callID, ToolName: toolName, Input: argsJSON},
		{Type: llm.EventFinish, FinishReason: llm.FinishToolCalls},
	}
}

// fakeDiscoveryClient is a minimal ToolDiscoveryClient double, standing
// in for MCPDiscoveryClient in tests that don't need a real stdio
// session.
type fakeDiscoveryClient struct {
	schemas []ToolSchema
	called  []string
}

func (f *fakeDiscoveryClient) ListAgents(ctx context.Context, taskPrompt string) ([]AgentDescriptor, error) {
	return nil, nil
}

func (f *fakeDiscoveryClient) ListTools(ctx context.Context) ([]ToolSchema, error) {
	return f.schemas, nil
}

func (f *fakeDiscoveryClient) CallTool(ctx context.Context, req ToolCallRequest) (tools.Result, error) {
	f.called = append(f.called, req.Name)
	return tools.Result{Text: "remote result"}, nil
}

func TestLoop_Run_MCPClientToolsAreDiscoveredAndDispatched(t *testing.T) {
	p := &scriptedProvider{scripts: [][]llm.Event{
		toolCallScript("remote_tool", "c1", `{}`),
		textScript("done"),
	}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	discovery := &fakeDiscoveryClient{schemas: []ToolSchema{{Name: "remote_tool", Description: "a remote tool"}}}
	agent := &Agent{Name: "solver", MCPClient: discovery}

	out, err := loop.Run(task, agent, nil, "use the remote tool")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, []string{"remote_tool"}, discovery.called)
}

func newTestTask(cfg *config.Config) *taskctx.Task {
	if cfg == nil {
		cfg = config.Default()
	}
	return taskctx.New("task-1", cfg)
}

func TestLoop_Run_PureTextAnswerStopsImmediately(t *testing.T) {
	p := &scriptedProvider{scripts: [][]llm.Event{textScript("the answer is 42")}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	agent := &Agent{Name: "solver", Description: "solves things"}

	out, err := loop.Run(task, agent, nil, "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", out)
	assert.Equal(t, 1, p.calls)
}

func TestLoop_Run_ToolCallThenTextAnswer(t *testing.T) {
	p := &scriptedProvider{scripts: [][]llm.Event{
		toolCallScript("add", "c1", `{"a":1,"b":2}`),
		textScript("3"),
	}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	called := false
	agent := &Agent{
		Name:  "math",
		Tools: []tools.Tool{addTool(&called)},
	}

	out, err := loop.Run(task, agent, nil, "add 1 and 2")
	require.NoError(t, err)
	assert.Equal(t, "3", out)
	assert.True(t, called)
	assert.Equal(t, 2, p.calls)
}

func TestLoop_Run_EmptyStepContinuesLoop(t *testing.T) {
	p := &scriptedProvider{scripts: [][]llm.Event{
		emptyFinishScript(),
		textScript("done"),
	}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	agent := &Agent{Name: "solver"}

	out, err := loop.Run(task, agent, nil, "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 2, p.calls)
}

func TestLoop_Run_ExpertModeCompletionCheckOnlyRunsOnce(t *testing.T) {
	// First text answer, then a completion check that says "incomplete",
	// then a second text answer that should NOT trigger a second check:
	// CheckNum gates a single check per loop execution.
	p := &scriptedProvider{scripts: [][]llm.Event{
		textScript("draft answer"),
		toolCallScript("task_result_check", "chk1", `{"complete":false}`),
		textScript("still not great"),
	}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	agent := &Agent{Name: "writer", ExpertMode: true}

	out, err := loop.Run(task, agent, nil, "write something")
	require.NoError(t, err)
	assert.Equal(t, "still not great", out)
	assert.Equal(t, 3, p.calls)
}

func TestLoop_Run_ExpertModeCompletionCheckAcceptsComplete(t *testing.T) {
	p := &scriptedProvider{scripts: [][]llm.Event{
		textScript("final answer"),
		toolCallScript("task_result_check", "chk1", `{"complete":true}`),
	}}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	agent := &Agent{Name: "writer", ExpertMode: true}

	out, err := loop.Run(task, agent, nil, "write something")
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	assert.Equal(t, 2, p.calls)
}

func TestLoop_Run_ReturnsUnfinishedAtIterationCap(t *testing.T) {
	scripts := make([][]llm.Event, 0, 5)
	for i := 0; i < 5; i++ {
		scripts = append(scripts, toolCallScript("noop", "c", `{}`))
	}
	p := &scriptedProvider{scripts: scripts}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	cfg := config.Default()
	cfg.MaxReactNum = 3
	task := newTestTask(cfg)
	agent := &Agent{Name: "looper", Tools: []tools.Tool{noopTool()}}

	out, err := loop.Run(task, agent, nil, "keep going forever")
	require.NoError(t, err)
	assert.Equal(t, "Unfinished", out)
	assert.Equal(t, 3, p.calls)
}

func TestLoop_Run_NodeTaskFlowsIntoUserMessage(t *testing.T) {
	var captured llm.Request
	p := &capturingScriptedProvider{script: textScript("ok"), captured: &captured}
	loop := NewLoop(llm.NewTurnEngine(p), nil)

	task := newTestTask(nil)
	agent := &Agent{Name: "solver"}
	node := &workflow.WorkflowAgent{Name: "solver", Task: "summarize the attached report"}

	_, err := loop.Run(task, agent, node, "main task prompt")
	require.NoError(t, err)
	require.NotEmpty(t, captured.Messages)
	last := captured.Messages[len(captured.Messages)-1]
	assert.Contains(t, last.TextContent(), "summarize the attached report")
	assert.Contains(t, last.TextContent(), "main task prompt")
}

type capturingScriptedProvider struct {
	script   []llm.Event
	captured *llm.Request
}

func (p *capturingScriptedProvider) Name() string { return "capturing" }

func (p *capturingScriptedProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	*p.captured = req
	return func(yield func(llm.Event, error) bool) {
		for _, ev := range p.script {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
