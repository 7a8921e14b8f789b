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

// Package planner implements the streaming plan/replan contract: turn a
// task prompt into a Workflow DAG by streaming a planning request to the
// model and parsing its response, first tolerantly (to publish in-flight
// progress) and finally strictly.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
	"github.com/arcflow-run/arcflow/pkg/workflow"
)

// ParseResult is what a Parser produces from the model's plan text: the
// data needed to build (or rebuild) a workflow.Workflow.
type ParseResult struct {
	TaskID   string
	Name     string
	Agents   []*workflow.WorkflowAgent
	Modified bool
}

// Parser is the planner's external collaborator. It must tolerate partial,
// still-streaming text, and separately support a strict pass once the
// stream has finished.
type Parser interface {
	// ParseTolerant attempts to extract a ParseResult from a possibly
	// incomplete plan text. ok is false when the text does not yet
	// contain anything parseable.
	ParseTolerant(text string) (result *ParseResult, ok bool)

	// ParseStrict requires the full plan text to parse cleanly.
	ParseStrict(text string) (*ParseResult, error)
}

// Planner streams a plan request and parses the result into a Workflow.
type Planner struct {
	Provider llm.Provider
	Parser   Parser
	Sink     callback.Sink
}

// NewPlanner builds a Planner. A nil sink defaults to callback.Noop.
func NewPlanner(provider llm.Provider, parser Parser, sink callback.Sink) *Planner {
	if sink == nil {
		sink = callback.Noop
	}
	return &Planner{Provider: provider, Parser: parser, Sink: sink}
}

const planningSystemPrompt = `You are a task planner. Decompose the user's task into a workflow of agents.
Reply with a single <workflow> XML document: <workflow name="...">, one or
more <agent name="..." dependsOn="comma,separated,names">task text</agent>
children, then </workflow>. dependsOn is optional and names sibling agents
that must finish first.`

// Plan streams a fresh planning request for taskPrompt and returns the
// resulting Workflow.
func (p *Planner) Plan(ctx context.Context, task *taskctx.Task, taskPrompt string) (*workflow.Workflow, error) {
	messages := []memory.Message{
		memory.SystemText(planningSystemPrompt),
		memory.UserText(taskFramedPrompt(taskPrompt, task)),
	}
	result, err := p.stream(ctx, task, messages)
	if err != nil {
		return nil, err
	}
	return toWorkflow(task.ID, result), nil
}

// Replan reuses the original planning request plus the previously
// produced plan text, appending newPrompt as a follow-up user turn.
func (p *Planner) Replan(ctx context.Context, task *taskctx.Task, newPrompt string) (*workflow.Workflow, error) {
	if task.Chain == nil {
		return nil, fmt.Errorf("planner: replan requires a chain holding the original plan request")
	}
	savedReq, savedResult := task.Chain.Plan()
	messages, ok := savedReq.([]memory.Message)
	if !ok || len(messages) == 0 {
		return nil, fmt.Errorf("planner: no prior plan request to replan from")
	}
	priorText, _ := savedResult.(string)

	replanMessages := append(append([]memory.Message{}, messages...),
		memory.AssistantParts(memory.TextPart(priorText)),
		memory.UserText("Replan to account for: "+newPrompt),
	)

	result, err := p.stream(ctx, task, replanMessages)
	if err != nil {
		return nil, err
	}
	result.Modified = true
	return toWorkflow(task.ID, result), nil
}

// stream drives one plan/replan model turn: emit planRequest, range over
// the provider's events accumulating text, tolerant-parse on every text
// increment, strict-parse at the end, and record (request, result) on
// the task's chain.
func (p *Planner) stream(ctx context.Context, task *taskctx.Task, messages []memory.Message) (*ParseResult, error) {
	_ = p.emit(ctx, task, callback.EventPlanRequest, messages)

	var text strings.Builder
	for ev, err := range p.Provider.Stream(ctx, llm.Request{Messages: messages}) {
		if err != nil {
			return nil, fmt.Errorf("planner: stream: %w", err)
		}
		switch ev.Type {
		case llm.EventTextDelta:
			text.WriteString(ev.Delta)
			if result, ok := p.Parser.ParseTolerant(text.String()); ok {
				_ = p.emit(ctx, task, callback.EventPlanResult, planProcessPayload{Final: false, Result: result})
			}
		case llm.EventError:
			if ev.Err != nil {
				return nil, fmt.Errorf("planner: stream error: %w", ev.Err)
			}
			return nil, fmt.Errorf("planner: stream error event")
		}
	}

	result, err := p.Parser.ParseStrict(text.String())
	if err != nil {
		return nil, fmt.Errorf("planner: strict parse: %w", err)
	}

	if task.Chain != nil {
		task.Chain.SetPlan(messages, text.String())
	}
	_ = p.emit(ctx, task, callback.EventPlanResult, planProcessPayload{Final: true, Result: result})

	return result, nil
}

type planProcessPayload struct {
	Final  bool
	Result *ParseResult
}

func (p *Planner) emit(ctx context.Context, task *taskctx.Task, eventType string, payload any) error {
	return p.Sink.Emit(ctx, callback.Event{
		TaskID:  task.ID,
		Type:    eventType,
		Payload: payload,
	})
}

func taskFramedPrompt(taskPrompt string, task *taskctx.Task) string {
	if ext := task.Variables().GetString(taskctx.VarPlanExtPrompt); ext != "" {
		return taskPrompt + "\n\n" + ext
	}
	return taskPrompt
}

func toWorkflow(taskID string, result *ParseResult) *workflow.Workflow {
	name := result.Name
	w := workflow.NewWorkflow(taskID, name, result.Agents)
	w.Modified = result.Modified
	return w
}
