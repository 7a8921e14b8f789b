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

package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arcflow-run/arcflow/pkg/memory"
)

// ConvertResult turns a tool's raw Result into a model-facing tool-result
// part. When the tool result carries media and
// multimodal is false, the media is stripped out of the tool-result part
// and returned instead as a synthesized user message the caller should
// append to history right after the tool message.
func ConvertResult(toolName, callID string, res Result, multimodal bool) (memory.Part, []memory.Message) {
	part := memory.Part{Kind: memory.PartToolResult, ToolCallID: callID, ToolName: toolName, IsError: res.IsError}

	if len(res.Parts) == 0 {
		return convertSinglePart(part, res)
	}
	return convertMultiPart(toolName, part, res, multimodal)
}

func convertSinglePart(part memory.Part, res Result) (memory.Part, []memory.Message) {
	text := res.Text

	if res.IsError {
		if !strings.HasPrefix(text, "Error: ") {
			if text == "" {
				text = "Error"
			} else {
				text = "Error: " + text
			}
		}
		part.Output = memory.OutputErrorText
		part.OutputText = text
		return part, nil
	}

	if text == "" {
		part.Output = memory.OutputText
		part.OutputText = "Successful"
		return part, nil
	}

	if looksLikeJSON(text) {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			part.Output = memory.OutputJSON
			part.OutputJSON = v
			return part, nil
		}
	}

	part.Output = memory.OutputText
	part.OutputText = text
	return part, nil
}

func convertMultiPart(toolName string, part memory.Part, res Result, multimodal bool) (memory.Part, []memory.Message) {
	part.Output = memory.OutputContent
	var synthesized []memory.Message

	for _, p := range res.Parts {
		switch p.Kind {
		case ResultText:
			part.OutputParts = append(part.OutputParts, memory.TextPart(p.Text))
		case ResultMedia:
			if multimodal {
				part.OutputParts = append(part.OutputParts, memory.FilePart(p.MediaType, p.Data))
				continue
			}
			label := fmt.Sprintf("call `%s` tool result", toolName)
			synthesized = append(synthesized, memory.Message{
				Role: memory.RoleUser,
				Parts: []memory.Part{
					memory.FilePart(p.MediaType, p.Data),
					memory.TextPart(label),
				},
			})
		}
	}

	if res.IsError {
		part.IsError = true
	}
	return part, synthesized
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}
