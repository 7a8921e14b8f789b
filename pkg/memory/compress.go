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

import (
	"encoding/json"
)

// MinMessagesForCompression is the floor below which compressAgentMessages
// is a no-op.
const MinMessagesForCompression = 5

// PrepareForCompression requires at least MinMessagesForCompression
// messages, then trims the buffer to end at the most recent tool-role
// message (a complete user->assistant->tool cycle). ok is false when
// compression should be skipped.
func PrepareForCompression(messages []Message) (trimmed []Message, ok bool) {
	if len(messages) < MinMessagesForCompression {
		return nil, false
	}
	last := LastToolIndex(messages)
	if last < 0 {
		return nil, false
	}
	out := make([]Message, last+1)
	copy(out, messages[:last+1])
	return out, true
}

// TruncateForSnapshot truncates, for every part beyond the first two
// messages, truncate oversize text payloads to a
// head-plus-ellipsis; for oversize JSON tool outputs, truncate the
// serialized form and try to recover a parseable prefix, downgrading to
// text/error-text if the recovered JSON is (almost) empty.
func TruncateForSnapshot(messages []Message, largeTextLength int) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	for i := 2; i < len(out); i++ {
		out[i] = truncateMessageParts(out[i], largeTextLength)
	}
	return out
}

func truncateMessageParts(m Message, largeTextLength int) Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	for i, p := range parts {
		parts[i] = truncatePart(p, largeTextLength)
	}
	m.Parts = parts
	return m
}

func truncatePart(p Part, largeTextLength int) Part {
	switch p.Kind {
	case PartText:
		if len(p.Text) > largeTextLength {
			p.Text = truncateHead(p.Text, largeTextLength)
		}
	case PartToolResult:
		return truncateToolResultPart(p, largeTextLength)
	}
	return p
}

func truncateToolResultPart(p Part, largeTextLength int) Part {
	switch p.Output {
	case OutputText, OutputErrorText:
		if len(p.OutputText) > largeTextLength {
			p.OutputText = truncateHead(p.OutputText, largeTextLength)
		}
		return p
	case OutputJSON, OutputErrorJSON:
		raw, err := json.Marshal(p.OutputJSON)
		if err != nil || len(raw) <= largeTextLength {
			return p
		}
		truncated := truncateHead(string(raw), largeTextLength)
		if recovered, ok := recoverJSONPrefix(truncated); ok && !isAlmostEmpty(recovered) {
			p.OutputJSON = recovered
			return p
		}
		// Could not recover a meaningful JSON prefix: downgrade to text.
		if p.Output == OutputErrorJSON {
			p.Output = OutputErrorText
		} else {
			p.Output = OutputText
		}
		p.OutputText = truncated
		p.OutputJSON = nil
		return p
	case OutputContent:
		parts := make([]Part, len(p.OutputParts))
		copy(parts, p.OutputParts)
		for i, sub := range parts {
			parts[i] = truncatePart(sub, largeTextLength)
		}
		p.OutputParts = parts
		return p
	default:
		return p
	}
}

// recoverJSONPrefix attempts to parse a truncated JSON string, trimming
// trailing bytes (dropping the "..." suffix and any dangling open
// container) until it parses, recovering the longest parseable prefix.
func recoverJSONPrefix(truncated string) (any, bool) {
	s := truncated
	const ellipsis = "..."
	if len(s) >= len(ellipsis) && s[len(s)-len(ellipsis):] == ellipsis {
		s = s[:len(s)-len(ellipsis)]
	}
	for n := len(s); n > 0; n-- {
		candidate := s[:n]
		var v any
		if err := json.Unmarshal([]byte(closeJSONIfNeeded(candidate)), &v); err == nil {
			return v, true
		}
	}
	return nil, false
}

// closeJSONIfNeeded appends closing brackets/braces to balance a
// truncated JSON object/array literal so it has a chance to parse.
func closeJSONIfNeeded(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}

// isAlmostEmpty reports whether a recovered JSON value carries
// effectively no information (nil, empty object, empty array, empty
// string), the signal used to decide whether to downgrade to text.
func isAlmostEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// UsedTools gathers, in first-appearance order, the distinct tool names
// referenced by any tool-role message's tool-result parts.
func UsedTools(messages []Message) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range messages {
		if m.Role != RoleTool {
			continue
		}
		for _, p := range m.ToolResultParts() {
			if p.ToolName == "" || seen[p.ToolName] {
				continue
			}
			seen[p.ToolName] = true
			names = append(names, p.ToolName)
		}
	}
	return names
}

// SpliceSnapshot takes the original pre-compression buffer, the index
// of its first tool-role message (F) and the index of the saved last
// tool-role message within that same original buffer (L), and the
// generated snapshot text, and produces:
//
//	[ original[0..F], snapshotUser, original[L..end] ]
//
// i.e. messages[F+1..L-1] are replaced by exactly one user message
// carrying the snapshot text.
func SpliceSnapshot(original []Message, firstToolIdx, lastToolIdx int, snapshotText string) []Message {
	if firstToolIdx < 0 || lastToolIdx < firstToolIdx || lastToolIdx >= len(original) {
		return original
	}
	out := make([]Message, 0, firstToolIdx+1+1+(len(original)-lastToolIdx))
	out = append(out, original[:firstToolIdx+1]...)
	out = append(out, UserText(snapshotText))
	out = append(out, original[lastToolIdx:]...)
	return out
}
