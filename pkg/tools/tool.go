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

// Package tools implements the tool schema/registry, the
// schema-plus-executor wrapper adapting a tool into the provider's
// function-tool wire shape, and parallel/serial dispatch.
package tools

import (
	"context"

	"github.com/arcflow-run/arcflow/pkg/llm"
)

// Executor runs a tool call given its parsed arguments.
type Executor func(ctx context.Context, args map[string]any, callID string) (Result, error)

// Result is a tool's raw execution outcome, before conversion into a
// provider tool-result part.
type Result struct {
	// Text is set for a simple string result.
	Text string

	// Parts carries a multi-part result (e.g. text plus media).
	Parts []ResultPart

	IsError bool
}

// ResultPartKind discriminates a Result's Parts entries.
type ResultPartKind int

const (
	ResultText ResultPartKind = iota
	ResultMedia
)

// ResultPart is one element of a multi-part tool Result.
type ResultPart struct {
	Kind      ResultPartKind
	Text      string
	MediaType string
	Data      string
}

// Tool is a schema+executor pair, wireable to a model as a function tool.
type Tool struct {
	Name        string
	Description string
	Parameters  any // JSON Schema
	Execute     Executor

	// NoPlan excludes this tool from planner-visible tool listings.
	NoPlan bool

	// SupportParallelCalls must be true on every referenced tool for a
	// batch of tool calls to be dispatched concurrently.
	SupportParallelCalls bool
}

// Schema renders the tool as the provider-facing function-tool shape.
func (t Tool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Parameters,
	}
}
