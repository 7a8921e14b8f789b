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

// Package taskctx implements the task/agent execution state, the
// cooperative cancellation and pause protocol, and the user-intervention
// queue.
package taskctx

import (
	"context"
	"sync"

	"github.com/arcflow-run/arcflow/pkg/chain"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/workflow"
	"github.com/google/uuid"
)

// Agent is the minimal surface taskctx needs from an agent implementation
// to deliver task-status notifications. The full Agent contract lives in
// pkg/agentloop; this narrow interface avoids a dependency cycle.
type Agent interface {
	OnTaskStatus(status string)
}

// Task owns the full per-request execution state: id, configuration,
// variable map, cancellation token, pause state, workflow, and chain.
type Task struct {
	ID     string
	Config *config.Config

	// Prompt is the original task prompt Generate planned from; agent
	// loop runs thread it back in as the "main task prompt" alongside
	// each workflow node's own task text.
	Prompt string

	Workflow *workflow.Workflow
	Chain    *chain.Chain

	vars *Variables
	pause *pauseController
	conv  *conversationQueue

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelCauseFunc
	currentStop string // stopReason recorded on abort, for delete/inspection

	currentAgent Agent
}

// New creates a Task with a fresh cancellation controller.
func New(id string, cfg *config.Config) *Task {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Task{
		ID:     id,
		Config: cfg,
		vars:   newVariables(),
		pause:  newPauseController(),
		conv:   newConversationQueue(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewID generates a fresh task id.
func NewID() string { return uuid.NewString() }

// Variables exposes the task's string-keyed scratch/recognized variable
// map.
func (t *Task) Variables() *Variables { return t.vars }

// Conversation exposes the user-intervention queue drained by the turn
// engine.
func (t *Task) Conversation() *conversationQueue { return t.conv }

// Context returns the task-level cancellation context. It is cancelled
// by AbortTask and stays cancelled until Reset installs a fresh one.
func (t *Task) Context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctx
}

// SetCurrentAgent records which agent is presently executing, so AbortTask
// can notify it.
func (t *Task) SetCurrentAgent(a Agent) {
	t.mu.Lock()
	t.currentAgent = a
	t.mu.Unlock()
}

// SetPause transitions the pause FSM. abortCurrentStep selects
// PausedAbortStep over Paused.
func (t *Task) SetPause(pause bool, abortCurrentStep bool) {
	t.pause.setPause(pause, abortCurrentStep)
}

// PauseState returns the current pause FSM state.
func (t *Task) PauseState() PauseState {
	return t.pause.currentState()
}

// AbortTask clears pause, cancels the task controller, and notifies the
// current agent.
func (t *Task) AbortTask() {
	t.pause.setPause(false, false)

	t.mu.Lock()
	t.currentStop = "abort"
	cancel := t.cancel
	agent := t.currentAgent
	t.mu.Unlock()

	cancel(ErrAborted)
	if agent != nil {
		agent.OnTaskStatus("abort")
	}
}

// Reset replaces the task controller with a fresh one, so a previously
// aborted task can be re-executed.
func (t *Task) Reset() {
	ctx, cancel := context.WithCancelCause(context.Background())
	t.mu.Lock()
	t.ctx = ctx
	t.cancel = cancel
	t.currentStop = ""
	t.mu.Unlock()
	t.pause.setPause(false, false)
}

// StopReason returns the stop reason recorded by the most recent abort,
// if any.
func (t *Task) StopReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentStop
}
