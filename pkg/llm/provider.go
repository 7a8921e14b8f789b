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

package llm

import (
	"context"
	"iter"

	"github.com/arcflow-run/arcflow/pkg/memory"
)

// ToolSchema is the wire shape a tool is offered to the model in.
type ToolSchema struct {
	Type        string // always "function"
	Name        string
	Description string
	InputSchema any // JSON Schema
}

// ToolChoice constrains which tool (if any) the model must call.
type ToolChoice struct {
	// Forced names a single tool the model must call, e.g. "task_snapshot"
	// during compression. Empty means no constraint.
	Forced string
}

// Request is the provider-facing turn request.
type Request struct {
	Messages        []memory.Message
	Tools           []ToolSchema
	ToolChoice      ToolChoice
	MaxTokens       int
	Temperature     float64
	ProviderOptions map[string]any
}

// Provider streams one model turn. Implementations wrap a concrete LLM
// SDK (OpenAI, Anthropic, Gemini, Ollama, or any other); arcflow treats
// the provider purely as an event source and never binds to a specific
// SDK.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) iter.Seq2[Event, error]
}
