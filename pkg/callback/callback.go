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

// Package callback implements the single asynchronous notification sink
// used to report task/plan/workflow/agent/LLM/tool lifecycle and
// streaming deltas out of the runtime.
package callback

import (
	"context"
	"time"
)

// Event is a single tagged notification. TaskID and Type are always set;
// AgentName/NodeID/Payload are populated depending on Type.
type Event struct {
	TaskID    string
	AgentName string
	NodeID    string
	Timestamp time.Time
	Type      string
	Payload   any
}

// Well-known event types emitted across the runtime. Sinks should treat
// unrecognized types as forward-compatible no-ops rather than erroring.
const (
	EventTaskStatus     = "task.status"
	EventPlanRequest    = "plan.request"
	EventPlanResult     = "plan.result"
	EventWorkflowUpdate = "workflow.update"
	EventAgentStart     = "agent.start"
	EventAgentText      = "agent.text"
	EventAgentFinish    = "agent.finish"
	EventLLMRequest     = "llm.request"
	EventLLMStream      = "llm.stream"
	EventToolCall       = "tool.call"
	EventToolResult     = "tool.result"
	EventError          = "error"
)

// Sink receives Events. Implementations must be non-throwing: an error
// returned from Emit is recorded but never propagated back into the
// caller's control flow.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Noop discards every event. Used as the default sink when the caller
// does not want notifications.
var Noop Sink = SinkFunc(func(context.Context, Event) error { return nil })
