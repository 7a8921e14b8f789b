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

package main

import (
	"context"
	"fmt"
	"iter"

	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
)

// planStubProvider is a deterministic stand-in for a real planning model:
// rather than call a real model, it emits a single-agent <workflow>
// document whose one agent's task is the user's original prompt,
// verbatim. This is enough to drive Planner.Plan's tolerant/strict parse
// machinery end to end without any network dependency.
type planStubProvider struct{}

func (planStubProvider) Name() string { return "plan-stub" }

func (planStubProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	prompt := lastUserText(req.Messages)
	xml := fmt.Sprintf(`<workflow name="smoke-test"><agent name="echo">%s</agent></workflow>`, prompt)
	return func(yield func(llm.Event, error) bool) {
		if !yield(llm.Event{Type: llm.EventTextDelta, Delta: xml}, nil) {
			return
		}
		yield(llm.Event{Type: llm.EventFinish, FinishReason: llm.FinishStop}, nil)
	}
}

// echoProvider is the "echo provider" named alongside the planner stub:
// it answers every agent-loop step by echoing the last user message back
// as its final text, with no tool calls, so the whole
// generate/execute/agent-loop pipeline can be smoke-tested without a
// real model endpoint.
type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	text := "echo: " + lastUserText(req.Messages)
	return func(yield func(llm.Event, error) bool) {
		if !yield(llm.Event{Type: llm.EventTextStart}, nil) {
			return
		}
		if !yield(llm.Event{Type: llm.EventTextDelta, Delta: text}, nil) {
			return
		}
		if !yield(llm.Event{Type: llm.EventTextEnd}, nil) {
			return
		}
		yield(llm.Event{Type: llm.EventFinish, FinishReason: llm.FinishStop}, nil)
	}
}

func lastUserText(messages []memory.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == memory.RoleUser {
			return messages[i].TextContent()
		}
	}
	return ""
}
