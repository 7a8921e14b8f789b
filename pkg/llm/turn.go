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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/memory"
)

// PartKind discriminates an assistant-step result part.
type PartKind int

const (
	PartText PartKind = iota
	PartToolCall
)

// Part is one element of a Stream Turn Engine result: `text? +
// tool-call*`.
type Part struct {
	Kind PartKind

	Text string

	ToolCallID string
	ToolName   string
	Input      map[string]any
}

// StepResult is the outcome of one successful assistant step.
type StepResult struct {
	Parts        []Part
	FinishReason FinishReason
	Usage        *Usage
}

// CompressFunc compresses a message history when the turn engine decides
// a turn is too large or a "length" finish or "is too long" error forces
// it. The actual implementation (building a snapshot via a forced
// task_snapshot tool call) lives above this package to avoid an
// llm->agentloop import cycle; the turn engine only needs the contract.
type CompressFunc func(ctx context.Context, messages []memory.Message) ([]memory.Message, error)

// StepOptions configures one TurnEngine.Step invocation.
type StepOptions struct {
	// SystemPrompt is prepended to the provider request's messages but
	// never stored in the caller's working buffer.
	SystemPrompt string

	Tools      []ToolSchema
	ToolChoice ToolChoice

	NoCompress              bool
	CompressThreshold       int
	CompressTokensThreshold int
	Compress                CompressFunc

	// DrainConversation returns and clears any queued user interventions
	// (task.conversation, the ReAct loop's "Observe" step). Nil
	// means no mid-task interventions are possible in this context.
	DrainConversation func() []string

	MaxRetryNum int

	// WithStep derives a per-step cancellable context, the union of the
	// task signal and a fresh step signal registered for pause/abort
	//. Nil means the turn uses ctx directly.
	WithStep func(parent context.Context) (context.Context, func())

	Sink      callback.Sink
	TaskID    string
	AgentName string
}

// TurnEngine performs one streaming provider turn, demuxing the event
// stream, including the retry/backoff and
// length-finish compression paths.
type TurnEngine struct {
	Provider Provider
}

// NewTurnEngine wraps a Provider.
func NewTurnEngine(p Provider) *TurnEngine {
	return &TurnEngine{Provider: p}
}

// Step performs the full contract: compress-if-needed, drain
// interventions, stream, demux, and retry. messages is the caller's
// current working buffer; Step does not mutate it, but returns the
// (possibly compressed) messages alongside the result so the caller can
// persist the new buffer state.
func (e *TurnEngine) Step(ctx context.Context, messages []memory.Message, opts StepOptions) ([]memory.Message, StepResult, error) {
	return e.step(ctx, messages, opts, 0)
}

func (e *TurnEngine) step(ctx context.Context, messages []memory.Message, opts StepOptions, retryNum int) ([]memory.Message, StepResult, error) {
	messages, err := e.preCompress(ctx, messages, opts)
	if err != nil {
		return messages, StepResult{}, err
	}

	if opts.ToolChoice.Forced == "" && opts.DrainConversation != nil {
		if interventions := opts.DrainConversation(); len(interventions) > 0 {
			var sb strings.Builder
			sb.WriteString("The user sent the following instructions while this task was running; replan to address them:\n")
			for _, line := range interventions {
				sb.WriteString("- ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
			messages = append(messages, memory.UserText(sb.String()))
		}
	}

	stepCtx := ctx
	cleanup := func() {}
	if opts.WithStep != nil {
		stepCtx, cleanup = opts.WithStep(ctx)
	}
	defer cleanup()

	e.emit(stepCtx, opts, callback.EventLLMRequest, nil)

	result, err := e.runStream(stepCtx, messages, opts)
	if err != nil {
		return e.handleFailure(ctx, messages, opts, retryNum, err)
	}

	if result.FinishReason == FinishLength &&
		len(messages) >= memory.MinMessagesForCompression &&
		!opts.NoCompress &&
		retryNum < opts.MaxRetryNum &&
		opts.Compress != nil {
		compressed, cErr := opts.Compress(ctx, messages)
		if cErr != nil {
			return messages, StepResult{}, fmt.Errorf("compress after length finish: %w", cErr)
		}
		return e.step(ctx, compressed, opts, retryNum+1)
	}

	return messages, result, nil
}

func (e *TurnEngine) preCompress(ctx context.Context, messages []memory.Message, opts StepOptions) ([]memory.Message, error) {
	if opts.NoCompress || opts.Compress == nil {
		return messages, nil
	}
	n := len(messages)
	overCount := opts.CompressThreshold > 0 && n >= opts.CompressThreshold
	overTokens := n >= 10 && opts.CompressTokensThreshold > 0 && memory.EstimateMessages(messages) >= opts.CompressTokensThreshold
	if !overCount && !overTokens {
		return messages, nil
	}
	return opts.Compress(ctx, messages)
}

func (e *TurnEngine) handleFailure(ctx context.Context, messages []memory.Message, opts StepOptions, retryNum int, cause error) ([]memory.Message, StepResult, error) {
	if retryNum >= opts.MaxRetryNum {
		return messages, StepResult{}, cause
	}

	backoff := time.Duration(300*(retryNum+1)*(retryNum+1)) * time.Millisecond
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return messages, StepResult{}, context.Cause(ctx)
	}

	if strings.Contains(cause.Error(), "is too long") && opts.Compress != nil {
		compressed, cErr := opts.Compress(ctx, messages)
		if cErr != nil {
			return messages, StepResult{}, fmt.Errorf("compress after too-long error: %w", cErr)
		}
		messages = compressed
	}

	return e.step(ctx, messages, opts, retryNum+1)
}

// toolIntent tracks one in-flight tool-call accretion, keyed by id.
type toolIntent struct {
	name      string
	argsText  string
	input     map[string]any
	finalized bool
}

func (e *TurnEngine) runStream(ctx context.Context, messages []memory.Message, opts StepOptions) (StepResult, error) {
	reqMessages := messages
	if opts.SystemPrompt != "" {
		reqMessages = make([]memory.Message, 0, len(messages)+1)
		reqMessages = append(reqMessages, memory.SystemText(opts.SystemPrompt))
		reqMessages = append(reqMessages, messages...)
	}
	req := Request{Messages: reqMessages, Tools: opts.Tools, ToolChoice: opts.ToolChoice}

	var (
		streamText  strings.Builder
		textStarted bool
		textEnded   bool
		toolOrder   []string
		toolIntents = map[string]*toolIntent{}
		finish      = StepResult{}
		streamErr   error
		sawFinish   bool
	)

	openIntent := func(id, name string) *toolIntent {
		it, ok := toolIntents[id]
		if !ok {
			it = &toolIntent{name: name}
			toolIntents[id] = it
			toolOrder = append(toolOrder, id)
		} else if name != "" {
			it.name = name
		}
		return it
	}

	for ev, err := range e.Provider.Stream(ctx, req) {
		if err != nil {
			streamErr = err
			break
		}
		switch ev.Type {
		case EventTextStart:
			textStarted = true
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventTextDelta:
			streamText.WriteString(ev.Delta)
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventTextEnd:
			textEnded = true
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventReasoningStart, EventReasoningDelta, EventReasoningEnd:
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventToolInputStart:
			openIntent(ev.ToolCallID, ev.ToolName)
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventToolInputDelta:
			if textStarted && !textEnded {
				textEnded = true
			}
			it := openIntent(ev.ToolCallID, "")
			it.argsText += ev.Delta
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventToolCall:
			it := openIntent(ev.ToolCallID, ev.ToolName)
			it.input = parseToolInput(ev.Input)
			it.finalized = true
			e.emit(ctx, opts, callback.EventToolCall, ev)
		case EventFile:
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		case EventError:
			streamErr = ev.Err
			if streamErr == nil {
				streamErr = fmt.Errorf("provider stream error event")
			}
		case EventFinish:
			sawFinish = true
			finish.FinishReason = ev.FinishReason
			finish.Usage = ev.Usage
			e.emit(ctx, opts, callback.EventLLMStream, ev)
		}
		if streamErr != nil {
			break
		}
	}

	if streamErr != nil {
		return StepResult{}, streamErr
	}
	if !sawFinish {
		return StepResult{}, fmt.Errorf("provider stream ended without a finish event")
	}

	for _, id := range toolOrder {
		it := toolIntents[id]
		if !it.finalized {
			it.input = parseToolInput(it.argsText)
		}
	}

	if streamText.Len() > 0 {
		finish.Parts = append(finish.Parts, Part{Kind: PartText, Text: streamText.String()})
	}
	for _, id := range toolOrder {
		it := toolIntents[id]
		finish.Parts = append(finish.Parts, Part{
			Kind:       PartToolCall,
			ToolCallID: id,
			ToolName:   it.name,
			Input:      it.input,
		})
	}
	return finish, nil
}

func parseToolInput(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func (e *TurnEngine) emit(ctx context.Context, opts StepOptions, eventType string, payload any) {
	if opts.Sink == nil {
		return
	}
	_ = opts.Sink.Emit(ctx, callback.Event{
		TaskID:    opts.TaskID,
		AgentName: opts.AgentName,
		Timestamp: time.Now(),
		Type:      eventType,
		Payload:   payload,
	})
}
