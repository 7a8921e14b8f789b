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

// Package orchestrator implements the top-level task lifecycle:
// generate a workflow from a task prompt, execute it node by node
// (serial or parallel siblings), and expose the task management
// operations (pause, abort, delete, chat, modify) layered on top of
// pkg/taskctx and pkg/workflow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arcflow-run/arcflow/pkg/agentloop"
	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/chain"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/planner"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
	"github.com/arcflow-run/arcflow/pkg/workflow"
)

// Result is returned by Run/Execute: the final node's textual result,
// or the stop reason recorded if execution did not complete normally.
type Result struct {
	TaskID     string
	Text       string
	StopReason string // "" on normal completion, else "abort" or "error"
}

// Orchestrator owns the set of live tasks and drives their workflows.
// One Orchestrator is typically shared across every request a process
// serves; it is safe for concurrent use.
type Orchestrator struct {
	Planner *planner.Planner
	Loop    *agentloop.Loop
	Sink    callback.Sink
	Config  *config.Config

	// Agents is the full named catalog of runnable agent.Agent
	// definitions this orchestrator knows how to invoke, keyed by
	// Agent.Name.
	Agents map[string]*agentloop.Agent

	mu    sync.Mutex
	tasks map[string]*taskctx.Task
}

// New builds an Orchestrator. A nil sink defaults to callback.Noop, and
// a nil cfg defaults to config.Default().
func New(p *planner.Planner, loop *agentloop.Loop, agents map[string]*agentloop.Agent, sink callback.Sink, cfg *config.Config) *Orchestrator {
	if sink == nil {
		sink = callback.Noop
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Orchestrator{
		Planner: p,
		Loop:    loop,
		Sink:    sink,
		Config:  cfg,
		Agents:  agents,
		tasks:   make(map[string]*taskctx.Task),
	}
}

// Task returns the registered task for id, or false if unknown.
func (o *Orchestrator) Task(id string) (*taskctx.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[id]
	return t, ok
}

func (o *Orchestrator) register(t *taskctx.Task) {
	o.mu.Lock()
	o.tasks[t.ID] = t
	o.mu.Unlock()
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.tasks, id)
	o.mu.Unlock()
}

// Run is the one-shot convenience entrypoint: generate a fresh task and
// immediately execute it.
func (o *Orchestrator) Run(ctx context.Context, taskPrompt string, taskID string, vars map[string]any) (Result, error) {
	task, err := o.Generate(ctx, taskPrompt, taskID, vars)
	if err != nil {
		return Result{}, err
	}
	return o.Execute(ctx, task.ID)
}

// Generate creates a new Task, seeds its variables, invokes the planner,
// and stores the resulting workflow. On
// failure the task is discarded and a taskFinished(error) event is
// emitted; the task is never registered in that case.
func (o *Orchestrator) Generate(ctx context.Context, taskPrompt string, taskID string, vars map[string]any) (*taskctx.Task, error) {
	if taskID == "" {
		taskID = taskctx.NewID()
	}

	task := taskctx.New(taskID, o.Config)
	task.Chain = chain.New(taskID)
	task.Prompt = taskPrompt
	if vars != nil {
		task.Variables().Merge(vars)
	}

	wf, err := o.Planner.Plan(ctx, task, taskPrompt)
	if err != nil {
		o.emitTaskFinished(ctx, taskID, err)
		return nil, fmt.Errorf("orchestrator: generate: %w", err)
	}
	if err := wf.Validate(); err != nil {
		o.emitTaskFinished(ctx, taskID, err)
		return nil, fmt.Errorf("orchestrator: generate: %w", err)
	}

	task.Workflow = wf
	o.register(task)

	_ = o.Sink.Emit(ctx, callback.Event{TaskID: taskID, Type: callback.EventTaskStatus, Payload: "start"})
	return task, nil
}

// Modify replans an existing task against a new prompt and stores the
// resulting workflow, without executing it.
func (o *Orchestrator) Modify(ctx context.Context, taskID, newPrompt string) (*workflow.Workflow, error) {
	task, ok := o.Task(taskID)
	if !ok {
		return nil, taskctx.ErrUnknownTask
	}
	wf, err := o.Planner.Replan(ctx, task, newPrompt)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: modify: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator: modify: %w", err)
	}
	task.Workflow = wf
	return wf, nil
}

// Execute drives task's workflow to completion node by node. An agent error becomes the task's recorded stop
// reason; the task is never deleted on failure so it may be retried via
// another Execute or Modify.
func (o *Orchestrator) Execute(ctx context.Context, taskID string) (Result, error) {
	task, ok := o.Task(taskID)
	if !ok {
		return Result{}, taskctx.ErrUnknownTask
	}
	if task.Workflow == nil {
		return Result{}, errors.New("orchestrator: task has no workflow; call Generate first")
	}

	task.Conversation().DrainAll()
	if task.PauseState() != taskctx.Running {
		task.SetPause(false, false)
	}
	select {
	case <-task.Context().Done():
		task.Reset()
	default:
	}

	node, err := workflow.BuildTraversal(task.Workflow)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: execute: %w", err)
	}

	var lastResult string
	for node != nil {
		if err := task.CheckAborted(false); err != nil {
			task.Workflow.Modified = false
			return o.finish(task, "", "abort")
		}

		switch node.Kind {
		case workflow.KindNormal:
			text, err := o.runNode(ctx, task, node.Agent)
			if err != nil {
				return o.finish(task, "", stopReasonFor(err))
			}
			lastResult = text

		case workflow.KindParallel:
			text, err := o.runParallel(ctx, task, node.Agents)
			if err != nil {
				return o.finish(task, "", stopReasonFor(err))
			}
			lastResult = text
		}

		node.Result = lastResult
		task.Conversation().DrainAll()

		if o.maybeReplan(ctx, task) {
			rebuilt, err := workflow.BuildTraversal(task.Workflow)
			if err != nil {
				return o.finish(task, "", "error")
			}
			task.Workflow.Modified = false
			node = rebuilt
			continue
		}

		node = node.Next
	}

	return o.finish(task, lastResult, "")
}

// runNode executes a single agent node and records its status/result on
// the workflow's WorkflowAgent entry.
func (o *Orchestrator) runNode(ctx context.Context, task *taskctx.Task, wa *workflow.WorkflowAgent) (string, error) {
	return o.runNodeChained(ctx, task, wa, nil)
}

// runNodeChained behaves like runNode but, when achain is non-nil, runs
// the agent against that pre-pushed AgentChain instead of letting the
// loop create and push its own. runParallel uses this to fix the
// Chain.Agents() order before any sibling goroutine starts.
func (o *Orchestrator) runNodeChained(ctx context.Context, task *taskctx.Task, wa *workflow.WorkflowAgent, achain *chain.AgentChain) (string, error) {
	agent, ok := o.Agents[wa.Name]
	if !ok {
		wa.Status = workflow.StatusError
		return "", fmt.Errorf("orchestrator: no agent registered for %q", wa.Name)
	}

	wa.Status = workflow.StatusRunning
	var text string
	var err error
	if achain != nil {
		text, err = o.Loop.RunChained(task, agent, wa, task.Prompt, achain)
	} else {
		text, err = o.Loop.Run(task, agent, wa, task.Prompt)
	}
	if err != nil {
		wa.Status = workflow.StatusError
		return "", err
	}
	wa.Status = workflow.StatusDone
	wa.Result = text
	return text, nil
}

// runParallel runs every sibling concurrently when parallelism is
// enabled (variable agentParallel, falling back to the global config
// flag), joining results with two blank lines in original declaration
// order. Falls back to sequential execution otherwise.
func (o *Orchestrator) runParallel(ctx context.Context, task *taskctx.Task, agents []*workflow.WorkflowAgent) (string, error) {
	if !task.Variables().BoolOr(taskctx.VarAgentParallel, task.Config.AgentParallel) {
		var parts []string
		for _, wa := range agents {
			text, err := o.runNode(ctx, task, wa)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		return joinResults(parts), nil
	}

	// AgentChains are pushed onto task.Chain here, synchronously and in
	// declared order, before any sibling goroutine starts: siblings race
	// to finish, but Chain.Agents() must come back in the order the
	// workflow declared them, not finish order.
	var chains []*chain.AgentChain
	if task.Chain != nil {
		chains = make([]*chain.AgentChain, len(agents))
		for i, wa := range agents {
			chains[i] = chain.NewAgentChain(wa.Name)
			task.Chain.Push(chains[i])
		}
	}

	results := make([]string, len(agents))
	g, gctx := errgroup.WithContext(task.Context())
	for i, wa := range agents {
		i, wa := i, wa
		var achain *chain.AgentChain
		if chains != nil {
			achain = chains[i]
		}
		g.Go(func() error {
			text, err := o.runNodeChained(gctx, task, wa, achain)
			if err != nil {
				return err
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return joinResults(results), nil
}

// maybeReplan checks whether the last-run agent's context requested a
// mid-execution replan. A replan is signalled by
// the plan_ext_prompt variable being set; the orchestrator consumes it,
// invokes Replan, and reports whether the traversal tree must be
// rebuilt.
func (o *Orchestrator) maybeReplan(ctx context.Context, task *taskctx.Task) bool {
	if task.Workflow.Modified {
		return true
	}
	ext := task.Variables().GetString(taskctx.VarPlanExtPrompt)
	if ext == "" {
		return false
	}
	task.Variables().Delete(taskctx.VarPlanExtPrompt)

	wf, err := o.Planner.Replan(ctx, task, ext)
	if err != nil {
		_ = o.Sink.Emit(ctx, callback.Event{TaskID: task.ID, Type: callback.EventError, Payload: err.Error()})
		return false
	}
	task.Workflow = wf
	return wf.Modified
}

func (o *Orchestrator) finish(task *taskctx.Task, text, stopReason string) (Result, error) {
	_ = o.Sink.Emit(task.Context(), callback.Event{
		TaskID:  task.ID,
		Type:    callback.EventTaskStatus,
		Payload: finishPayload{StopReason: stopReason},
	})
	if stopReason != "" {
		return Result{TaskID: task.ID, Text: text, StopReason: stopReason}, nil
	}
	return Result{TaskID: task.ID, Text: text}, nil
}

type finishPayload struct {
	StopReason string
}

func (o *Orchestrator) emitTaskFinished(ctx context.Context, taskID string, err error) {
	_ = o.Sink.Emit(ctx, callback.Event{
		TaskID:  taskID,
		Type:    callback.EventTaskStatus,
		Payload: finishPayload{StopReason: "error: " + err.Error()},
	})
}

func stopReasonFor(err error) string {
	if errors.Is(err, taskctx.ErrAborted) {
		return "abort"
	}
	return "error"
}

func joinResults(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n\n"
		}
		out += p
	}
	return out
}

// Pause suspends task. abortCurrentStep selects the PausedAbortStep
// variant.
func (o *Orchestrator) Pause(taskID string, abortCurrentStep bool) error {
	task, ok := o.Task(taskID)
	if !ok {
		return taskctx.ErrUnknownTask
	}
	task.SetPause(true, abortCurrentStep)
	return nil
}

// Resume clears a task's pause state.
func (o *Orchestrator) Resume(taskID string) error {
	task, ok := o.Task(taskID)
	if !ok {
		return taskctx.ErrUnknownTask
	}
	task.SetPause(false, false)
	return nil
}

// Abort cancels task's controller and notifies its current agent.
func (o *Orchestrator) Abort(taskID string) error {
	task, ok := o.Task(taskID)
	if !ok {
		return taskctx.ErrUnknownTask
	}
	task.AbortTask()
	return nil
}

// Delete removes task from the orchestrator's registry entirely.
func (o *Orchestrator) Delete(taskID string) error {
	if _, ok := o.Task(taskID); !ok {
		return taskctx.ErrUnknownTask
	}
	o.forget(taskID)
	return nil
}

// Chat enqueues a user-intervention message on task's conversation queue,
// to be drained by the turn engine on its next unforced step.
func (o *Orchestrator) Chat(taskID, text string) error {
	task, ok := o.Task(taskID)
	if !ok {
		return taskctx.ErrUnknownTask
	}
	task.Conversation().Push(text)
	return nil
}
