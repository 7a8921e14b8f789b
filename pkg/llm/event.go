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

// Package llm implements the provider-facing streaming contract and the
// Stream Turn Engine that demuxes one provider turn into assistant-step
// parts, including the compress-and-retry failure path.
package llm

// EventType tags the provider stream event union.
type EventType string

const (
	EventTextStart      EventType = "text-start"
	EventTextDelta      EventType = "text-delta"
	EventTextEnd        EventType = "text-end"
	EventReasoningStart EventType = "reasoning-start"
	EventReasoningDelta EventType = "reasoning-delta"
	EventReasoningEnd   EventType = "reasoning-end"
	EventToolInputStart EventType = "tool-input-start"
	EventToolInputDelta EventType = "tool-input-delta"
	EventToolCall       EventType = "tool-call"
	EventFile           EventType = "file"
	EventError          EventType = "error"
	EventFinish         EventType = "finish"
)

// FinishReason mirrors the provider's reported stop cause.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content-filter"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
)

// Usage reports token accounting from a finish event.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Event is the discriminated union of provider stream events.
// Only the fields relevant to Type are populated.
type Event struct {
	Type EventType

	// text-delta / reasoning-delta
	Delta string

	// tool-input-start / tool-input-delta / tool-call: identifies the
	// open intent.
	ToolCallID string
	ToolName   string // set on tool-input-start and tool-call

	// tool-call
	Input string // raw JSON

	// file
	MediaType string
	Data      string

	// error
	Err error

	// finish
	FinishReason FinishReason
	Usage        *Usage
}
