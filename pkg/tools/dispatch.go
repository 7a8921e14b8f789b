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
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"

	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
)

// ErrorCounter tracks the consecutive tool-error cascade. Satisfied
// structurally by taskctx.AgentContext.
type ErrorCounter interface {
	ResetErrorCount()
	IncrementErrorCount() bool
}

// DispatchOptions configures one Dispatch call.
type DispatchOptions struct {
	GlobalParallel   bool
	AgentCanParallel bool
	Multimodal       bool

	Errors ErrorCounter

	Sink      callback.Sink
	TaskID    string
	AgentName string
}

// Dispatch executes every tool-call part from an assistant step.
// Decides serial vs. parallel execution, runs each call,
// converts results, and assembles the tool-result message plus any
// synthesized user messages for non-multimodal media results. Ordering
// is preserved regardless of dispatch mode.
func Dispatch(ctx context.Context, reg *Registry, calls []llm.Part, opts DispatchOptions) (memory.Message, []memory.Message, error) {
	parallel := opts.GlobalParallel && opts.AgentCanParallel && allSupportParallel(reg, calls)

	results := make([]Result, len(calls))

	run := func(i int) error {
		res := runOne(ctx, reg, calls[i])
		results[i] = res
		e := opts.emit(ctx, callback.EventToolResult, calls[i].ToolName, res)
		_ = e
		if res.IsError {
			if opts.Errors != nil && opts.Errors.IncrementErrorCount() {
				return fmt.Errorf("tool %q failed %d times consecutively: %s", calls[i].ToolName, 10, res.Text)
			}
			return nil
		}
		if opts.Errors != nil {
			opts.Errors.ResetErrorCount()
		}
		return nil
	}

	if parallel {
		g, gctx := errgroup.WithContext(ctx)
		_ = gctx
		for i := range calls {
			i := i
			g.Go(func() error { return run(i) })
		}
		if err := g.Wait(); err != nil {
			return memory.Message{}, nil, err
		}
	} else {
		for i := range calls {
			if err := run(i); err != nil {
				return memory.Message{}, nil, err
			}
		}
	}

	var parts []memory.Part
	var synthesized []memory.Message
	for i, call := range calls {
		part, extra := ConvertResult(call.ToolName, call.ToolCallID, results[i], opts.Multimodal)
		parts = append(parts, part)
		synthesized = append(synthesized, extra...)
	}

	return memory.ToolResultMessage(parts...), synthesized, nil
}

func runOne(ctx context.Context, reg *Registry, call llm.Part) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{IsError: true, Text: fmt.Sprintf("%v", r)}
		}
	}()

	t, ok := reg.Lookup(call.ToolName)
	if !ok {
		return Result{IsError: true, Text: fmt.Sprintf("%s tool does not exist", call.ToolName)}
	}

	if err := validateArgs(t.Parameters, call.Input); err != nil {
		return Result{IsError: true, Text: fmt.Sprintf("invalid arguments for %s: %v", call.ToolName, err)}
	}

	out, err := t.Execute(ctx, call.Input, call.ToolCallID)
	if err != nil {
		return Result{IsError: true, Text: err.Error()}
	}
	return out
}

// validateArgs checks a tool call's parsed input against the tool's
// declared JSON-Schema before Execute runs. A nil schema (dynamically
// declared tools with no schema) skips validation entirely. The schema
// is round-tripped through encoding/json first since Parameters may be
// either a raw map[string]any or a reflected *jsonschema.Schema struct
// (see Wrap), and the compiler only accepts plain decoded-JSON values.
func validateArgs(schemaDoc any, args map[string]any) error {
	if schemaDoc == nil {
		return nil
	}

	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	instance := make(map[string]any, len(args))
	for k, v := range args {
		instance[k] = v
	}
	return schema.Validate(instance)
}

func allSupportParallel(reg *Registry, calls []llm.Part) bool {
	for _, c := range calls {
		t, ok := reg.Lookup(c.ToolName)
		if !ok || !t.SupportParallelCalls {
			return false
		}
	}
	return true
}

func (o DispatchOptions) emit(ctx context.Context, eventType, toolName string, res Result) error {
	if o.Sink == nil {
		return nil
	}
	return o.Sink.Emit(ctx, callback.Event{
		TaskID:    o.TaskID,
		AgentName: o.AgentName,
		Type:      eventType,
		Payload:   map[string]any{"tool": toolName, "isError": res.IsError},
	})
}
