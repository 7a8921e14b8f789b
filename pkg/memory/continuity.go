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

package memory

// FixDiscontinuousMessages repairs invariants I1-I3 after any structural
// edit to a message slice:
//
//  1. Drop leading non-user turns.
//  2. Dedupe two consecutive identical user messages.
//  3. Synthesize a tool message (result text "No result" for every call
//     id) after any assistant message with tool-calls that isn't already
//     followed by one.
//
// The system message, if any, is assembled separately at request-build
// time and is never part of the slice this function operates on.
func FixDiscontinuousMessages(messages []Message) []Message {
	messages = dropLeadingNonUser(messages)
	messages = dedupeConsecutiveUsers(messages)
	messages = synthesizeMissingToolResults(messages)
	return messages
}

func dropLeadingNonUser(messages []Message) []Message {
	i := 0
	for i < len(messages) && messages[i].Role != RoleUser {
		i++
	}
	return messages[i:]
}

func dedupeConsecutiveUsers(messages []Message) []Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]Message, 0, len(messages))
	out = append(out, messages[0])
	for i := 1; i < len(messages); i++ {
		prev := out[len(out)-1]
		cur := messages[i]
		if prev.Role == RoleUser && cur.Role == RoleUser && prev.Equal(cur) {
			continue
		}
		out = append(out, cur)
	}
	return out
}

func synthesizeMissingToolResults(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		m := messages[i]
		out = append(out, m)
		if !m.HasToolCalls() {
			continue
		}
		var hasFollowingTool bool
		if i+1 < len(messages) && messages[i+1].Role == RoleTool {
			hasFollowingTool = true
		}
		if hasFollowingTool {
			continue
		}
		var parts []Part
		for _, call := range m.ToolCallParts() {
			parts = append(parts, Part{
				Kind:       PartToolResult,
				ToolCallID: call.ToolCallID,
				ToolName:   call.ToolName,
				Output:     OutputErrorText,
				OutputText: "No result",
				IsError:    true,
			})
		}
		out = append(out, ToolResultMessage(parts...))
	}
	return out
}
