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
	"fmt"
	"strings"

	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
)

var taskSnapshotSchema = llm.ToolSchema{
	Type:        "function",
	Name:        "task_snapshot",
	Description: "Summarize the work done so far into a snapshot that replaces the detailed tool transcript.",
	InputSchema: snapshotArgsSchema(),
}

func snapshotArgsSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doneIds": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"taskSnapshot": map[string]any{"type": "string"},
		},
		"required": []string{"taskSnapshot"},
	}
}

// newCompressFunc builds the llm.CompressFunc the turn engine calls when a
// step's messages grow past threshold or the provider reports a
// length/too-long failure. It lives in
// pkg/agentloop rather than pkg/memory because it drives a model call of
// its own.
func newCompressFunc(turn *llm.TurnEngine, ac *taskctx.AgentContext, systemPrompt string, cfg *config.Config, sink callback.Sink) llm.CompressFunc {
	return func(ctx context.Context, messages []memory.Message) ([]memory.Message, error) {
		trimmed, ok := memory.PrepareForCompression(messages)
		if !ok {
			return messages, nil
		}
		truncated := memory.TruncateForSnapshot(trimmed, cfg.LargeTextLength)

		usedTools := memory.UsedTools(truncated)
		request := append(append([]memory.Message{}, truncated...), memory.UserText(snapshotRequestText(usedTools)))

		_, result, err := turn.Step(ctx, request, llm.StepOptions{
			SystemPrompt: systemPrompt,
			Tools:        []llm.ToolSchema{taskSnapshotSchema},
			ToolChoice:   llm.ToolChoice{Forced: "task_snapshot"},
			NoCompress:   true,
			MaxRetryNum:  cfg.MaxRetryNum,
			WithStep:     ac.WithStep,
			Sink:         sink,
			TaskID:       ac.ID,
			AgentName:    ac.AgentName,
		})
		if err != nil {
			return nil, fmt.Errorf("agentloop: snapshot compression: %w", err)
		}

		snapshotText, doneIds := extractSnapshot(result.Parts)
		if snapshotText == "" {
			snapshotText = "(no summary produced)"
		}
		if len(doneIds) > 0 {
			ac.Variables().Set("doneIds", doneIds)
		}

		firstToolIdx := memory.FirstToolIndex(messages)
		lastToolIdx := memory.LastToolIndex(trimmed)
		spliced := memory.SpliceSnapshot(messages, firstToolIdx, lastToolIdx, snapshotText)
		return memory.FixDiscontinuousMessages(spliced), nil
	}
}

func snapshotRequestText(usedTools []string) string {
	if len(usedTools) == 0 {
		return "Call task_snapshot to summarize the work done so far."
	}
	return "Call task_snapshot to summarize the work done so far, including the use of: " + strings.Join(usedTools, ", ")
}

func extractSnapshot(parts []llm.Part) (snapshot string, doneIds []string) {
	for _, p := range parts {
		if p.Kind != llm.PartToolCall || p.ToolName != "task_snapshot" {
			continue
		}
		if s, ok := p.Input["taskSnapshot"].(string); ok {
			snapshot = s
		}
		if raw, ok := p.Input["doneIds"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					doneIds = append(doneIds, s)
				}
			}
		}
		return
	}
	return
}
