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
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
)

var taskResultCheckSchema = llm.ToolSchema{
	Type:        "function",
	Name:        "task_result_check",
	Description: "Judge whether the answer just given actually completes the task.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"complete": map[string]any{"type": "boolean"},
			"reason":   map[string]any{"type": "string"},
		},
		"required": []string{"complete"},
	},
}

var todoManagerSchema = llm.ToolSchema{
	Type:        "function",
	Name:        "todo_manager",
	Description: "Record the current outstanding todo list for this task.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"todos"},
	},
}

// runCompletionCheck implements expert mode's completion check: force a task_result_check tool call and read
// its "complete" verdict. It is only ever invoked once per loop
// execution — AgentContext.CheckNum is incremented by the caller before
// this runs, so a later incomplete answer is never re-checked.
func (l *Loop) runCompletionCheck(task *taskctx.Task, ac *taskctx.AgentContext, buffer *memory.Buffer, systemPrompt string) (complete bool, err error) {
	messages, result, err := l.Turn.Step(task.Context(), buffer.Messages(), llm.StepOptions{
		SystemPrompt: systemPrompt,
		Tools:        []llm.ToolSchema{taskResultCheckSchema},
		ToolChoice:   llm.ToolChoice{Forced: "task_result_check"},
		NoCompress:   true,
		MaxRetryNum:  task.Config.MaxRetryNum,
		WithStep:     ac.WithStep,
		Sink:         l.Sink,
		TaskID:       task.ID,
		AgentName:    ac.AgentName,
	})
	if err != nil {
		return false, err
	}
	buffer.Replace(messages)

	for _, p := range result.Parts {
		if p.Kind != llm.PartToolCall || p.ToolName != "task_result_check" {
			continue
		}
		buffer.Append(assistantMessage([]llm.Part{p}))
		buffer.Append(memory.ToolResultMessage(memory.Part{
			Kind:       memory.PartToolResult,
			ToolCallID: p.ToolCallID,
			ToolName:   p.ToolName,
			Output:     memory.OutputText,
			OutputText: "recorded",
		}))
		complete, _ = p.Input["complete"].(bool)
		return complete, nil
	}
	// The model ignored the forced tool choice: treat as complete rather
	// than looping forever on an inconclusive check.
	return true, nil
}

// runTodoMaintenance forces a todo_manager tool call and stashes the
// result on the task's variable map.
func (l *Loop) runTodoMaintenance(task *taskctx.Task, ac *taskctx.AgentContext, buffer *memory.Buffer, systemPrompt string) error {
	messages, result, err := l.Turn.Step(task.Context(), buffer.Messages(), llm.StepOptions{
		SystemPrompt: systemPrompt,
		Tools:        []llm.ToolSchema{todoManagerSchema},
		ToolChoice:   llm.ToolChoice{Forced: "todo_manager"},
		NoCompress:   true,
		MaxRetryNum:  task.Config.MaxRetryNum,
		WithStep:     ac.WithStep,
		Sink:         l.Sink,
		TaskID:       task.ID,
		AgentName:    ac.AgentName,
	})
	if err != nil {
		return err
	}
	buffer.Replace(messages)

	for _, p := range result.Parts {
		if p.Kind != llm.PartToolCall || p.ToolName != "todo_manager" {
			continue
		}
		buffer.Append(assistantMessage([]llm.Part{p}))
		buffer.Append(memory.ToolResultMessage(memory.Part{
			Kind:       memory.PartToolResult,
			ToolCallID: p.ToolCallID,
			ToolName:   p.ToolName,
			Output:     memory.OutputText,
			OutputText: "recorded",
		}))
		if raw, ok := p.Input["todos"].([]any); ok {
			todos := make([]string, 0, len(raw))
			for _, v := range raw {
				if s, ok := v.(string); ok {
					todos = append(todos, s)
				}
			}
			ac.Variables().Set("todos", todos)
		}
		return nil
	}
	return nil
}
