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

package orchestrator

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow-run/arcflow/pkg/agentloop"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/planner"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
)

// scriptedProvider replays a fixed event script on every Stream call,
// matching the test double pattern already used in pkg/planner and
// pkg/agentloop's own test files.
type scriptedProvider struct {
	text string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	return func(yield func(llm.Event, error) bool) {
		if !yield(llm.Event{Type: llm.EventTextDelta, Delta: p.text}, nil) {
			return
		}
		yield(llm.Event{Type: llm.EventFinish, FinishReason: llm.FinishStop}, nil)
	}
}

func newTestOrchestrator(planXML string, agents map[string]*agentloop.Agent) *Orchestrator {
	p := planner.NewPlanner(&scriptedProvider{text: planXML}, planner.XMLParser{}, nil)
	loop := agentloop.NewLoop(llm.NewTurnEngine(&scriptedProvider{text: "done"}), nil)
	return New(p, loop, agents, nil, config.Default())
}

const singleAgentPlan = `<workflow name="w"><agent name="solver">do it</agent></workflow>`

func TestOrchestrator_Run_GeneratesAndExecutesSingleAgent(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{
		"solver": {Name: "solver"},
	})

	result, err := o.Run(context.Background(), "solve it", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, "", result.StopReason)

	task, ok := o.Task(result.TaskID)
	require.True(t, ok)
	assert.Equal(t, "do it", task.Workflow.Agents[0].Task)
}

const twoAgentPlan = `<workflow name="w">` +
	`<agent name="a">first</agent>` +
	`<agent name="b" dependsOn="a">second</agent>` +
	`</workflow>`

func TestOrchestrator_Execute_RunsDependentAgentsInOrder(t *testing.T) {
	o := newTestOrchestrator(twoAgentPlan, map[string]*agentloop.Agent{
		"a": {Name: "a"},
		"b": {Name: "b"},
	})

	task, err := o.Generate(context.Background(), "do two things", "", nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, "done", task.Workflow.AgentByName("a").Result)
	assert.Equal(t, "done", task.Workflow.AgentByName("b").Result)
}

const parallelPlan = `<workflow name="w">` +
	`<agent name="a">first</agent>` +
	`<agent name="b">second</agent>` +
	`</workflow>`

func TestOrchestrator_Execute_RunsIndependentAgentsSequentiallyByDefault(t *testing.T) {
	o := newTestOrchestrator(parallelPlan, map[string]*agentloop.Agent{
		"a": {Name: "a"},
		"b": {Name: "b"},
	})
	task, err := o.Generate(context.Background(), "do two independent things", "", nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done\n\n\ndone", result.Text)
}

func TestOrchestrator_Execute_ParallelSiblingsAppendChainsInDeclaredOrder(t *testing.T) {
	cfg := config.Default()
	cfg.AgentParallel = true
	o := newTestOrchestrator(parallelPlan, map[string]*agentloop.Agent{
		"a": {Name: "a"},
		"b": {Name: "b"},
	})
	o.Config = cfg

	task, err := o.Generate(context.Background(), "do two independent things", "", nil)
	require.NoError(t, err)
	task.Config = cfg

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done\n\n\ndone", result.Text)

	require.NotNil(t, task.Chain)
	recorded := task.Chain.Agents()
	require.Len(t, recorded, 2)
	assert.Equal(t, "a", recorded[0].AgentName)
	assert.Equal(t, "b", recorded[1].AgentName)
}

func TestOrchestrator_Execute_MissingAgentReportsError(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{})
	task, err := o.Generate(context.Background(), "solve it", "", nil)
	require.NoError(t, err)

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "error", result.StopReason)
}

func TestOrchestrator_Execute_ResetsAPreviouslyAbortedTask(t *testing.T) {
	// on execute, an aborted or paused task is reset/unpaused,
	// so a task aborted by a prior run is eligible for a clean retry.
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{
		"solver": {Name: "solver"},
	})
	task, err := o.Generate(context.Background(), "solve it", "", nil)
	require.NoError(t, err)
	task.AbortTask()
	require.Error(t, task.CheckAborted(false))

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, "", result.StopReason)
	assert.NoError(t, task.CheckAborted(false))
}

func TestOrchestrator_Execute_UnpausesAPausedTask(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{
		"solver": {Name: "solver"},
	})
	task, err := o.Generate(context.Background(), "solve it", "", nil)
	require.NoError(t, err)
	task.SetPause(true, false)

	result, err := o.Execute(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, taskctx.Running, task.PauseState())
}

func TestOrchestrator_Execute_UnknownTaskErrors(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, nil)
	_, err := o.Execute(context.Background(), "ghost")
	assert.ErrorIs(t, err, taskctx.ErrUnknownTask)
}

func TestOrchestrator_PauseAbortDeleteChat(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{
		"solver": {Name: "solver"},
	})
	task, err := o.Generate(context.Background(), "solve it", "", nil)
	require.NoError(t, err)

	require.NoError(t, o.Pause(task.ID, false))
	assert.Equal(t, taskctx.Paused, task.PauseState())

	require.NoError(t, o.Chat(task.ID, "hang on"))
	assert.Equal(t, 1, task.Conversation().Len())

	require.NoError(t, o.Resume(task.ID))
	assert.Equal(t, taskctx.Running, task.PauseState())

	require.NoError(t, o.Abort(task.ID))
	assert.Equal(t, "abort", task.StopReason())

	require.NoError(t, o.Delete(task.ID))
	_, ok := o.Task(task.ID)
	assert.False(t, ok)
}

func TestOrchestrator_Modify_ReplansWithoutExecuting(t *testing.T) {
	o := newTestOrchestrator(singleAgentPlan, map[string]*agentloop.Agent{
		"solver": {Name: "solver"},
	})
	task, err := o.Generate(context.Background(), "solve it", "", nil)
	require.NoError(t, err)

	o.Planner = planner.NewPlanner(&scriptedProvider{text: `<workflow name="w2"><agent name="solver">redo it</agent></workflow>`}, planner.XMLParser{}, nil)

	wf, err := o.Modify(context.Background(), task.ID, "actually redo it")
	require.NoError(t, err)
	assert.Equal(t, "w2", wf.Name)
	assert.True(t, wf.Modified)
	assert.Equal(t, workflowStatusInit(task), true)
}

func workflowStatusInit(task *taskctx.Task) bool {
	for _, a := range task.Workflow.Agents {
		if a.Status != "init" {
			return false
		}
	}
	return true
}
