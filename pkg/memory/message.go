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

// Package memory implements the per-agent working buffer and the outer
// dialogue-scope buffer: message invariants, token estimation,
// large-content pruning, snapshot compression, and continuity repair.
package memory

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind discriminates the payload carried by a Part.
type PartKind string

const (
	PartText       PartKind = "text"
	PartFile       PartKind = "file"
	PartReasoning  PartKind = "reasoning"
	PartToolCall   PartKind = "tool-call"
	PartToolResult PartKind = "tool-result"
)

// ToolOutputKind discriminates a tool-result Part's Output encoding.
type ToolOutputKind string

const (
	OutputText      ToolOutputKind = "text"
	OutputErrorText ToolOutputKind = "error-text"
	OutputJSON      ToolOutputKind = "json"
	OutputErrorJSON ToolOutputKind = "error-json"
	OutputContent   ToolOutputKind = "content"
)

// Part is one ordered element of a Message's content. Exactly the fields
// matching Kind are meaningful; this favors a discriminated-union style
// over separate Go interfaces per part kind, keeping message slices
// simple to prune/truncate/splice in
// place.
type Part struct {
	Kind PartKind

	// PartText
	Text string

	// PartFile
	MediaType string
	Data      string // base64 or URL, opaque to memory

	// PartReasoning
	Reasoning string

	// PartToolCall
	ToolCallID string
	ToolName   string
	Input      map[string]any

	// PartToolResult (ToolCallID/ToolName reused from above)
	Output      ToolOutputKind
	OutputText  string
	OutputJSON  any
	OutputParts []Part // nested text|media parts when Output == OutputContent
	IsError     bool
}

// TextPart is a convenience constructor for a plain text Part.
func TextPart(text string) Part { return Part{Kind: PartText, Text: text} }

// FilePart is a convenience constructor for a file/media Part.
func FilePart(mediaType, data string) Part {
	return Part{Kind: PartFile, MediaType: mediaType, Data: data}
}

// IsImage reports whether a PartFile part's media type is an image.
func (p Part) IsImage() bool {
	return p.Kind == PartFile && len(p.MediaType) >= 6 && p.MediaType[:6] == "image/"
}

// Message is one turn in a conversation buffer.
type Message struct {
	Role  Role
	Parts []Part

	// ProviderOptions is an opaque, provider-keyed pass-through field.
	ProviderOptions map[string]any
}

// ToolCallParts returns the tool-call parts of an assistant message, in
// order.
func (m Message) ToolCallParts() []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Kind == PartToolCall {
			out = append(out, p)
		}
	}
	return out
}

// ToolResultParts returns the tool-result parts of a tool message, in
// order.
func (m Message) ToolResultParts() []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Kind == PartToolResult {
			out = append(out, p)
		}
	}
	return out
}

// HasToolCalls reports whether m is an assistant message carrying at
// least one tool-call part.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCallParts()) > 0
}

// TextContent concatenates every text part's content, used for the
// "identical content" check in invariant I3.
func (m Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// Equal reports whether two messages have the same role, identical text
// content and the same number of parts, the comparison invariant I3
// relies on.
func (m Message) Equal(other Message) bool {
	return m.Role == other.Role && m.TextContent() == other.TextContent() && len(m.Parts) == len(other.Parts)
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

func SystemText(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

func AssistantParts(parts ...Part) Message {
	return Message{Role: RoleAssistant, Parts: parts}
}

func ToolResultMessage(parts ...Part) Message {
	return Message{Role: RoleTool, Parts: parts}
}
