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
	"sync"

	"github.com/google/uuid"
)

// DialogueMessage wraps a Message with the identity needed for
// removeMessageById/cascade semantics in the outer dialogue-scope buffer.
type DialogueMessage struct {
	ID      string
	Message Message
}

// DialogueBuffer is the optional outer chat-layer buffer: same invariants
// as Buffer, plus id-addressable removal, capacity trimming, and an
// explicit buildMessages() that prepends a system message.
type DialogueBuffer struct {
	mu              sync.Mutex
	messages        []DialogueMessage
	maxMessages     int
	maxTokens       int
	compressMaxLen  int // 0 disables compression-max-length truncation
	compressEnabled bool
}

// NewDialogueBuffer creates a DialogueBuffer with the given capacity
// policy. compressMaxLen == 0 disables the optional truncation of
// assistant text and tool string results.
func NewDialogueBuffer(maxMessages, maxTokens, compressMaxLen int) *DialogueBuffer {
	return &DialogueBuffer{
		maxMessages:     maxMessages,
		maxTokens:       maxTokens,
		compressMaxLen:  compressMaxLen,
		compressEnabled: compressMaxLen > 0,
	}
}

// AddMessages appends one or more messages, assigning each a fresh id,
// then enforces the capacity policy.
func (d *DialogueBuffer) AddMessages(messages ...Message) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, len(messages))
	for i, m := range messages {
		if d.compressEnabled {
			m = d.truncateMessage(m)
		}
		id := uuid.NewString()
		ids[i] = id
		d.messages = append(d.messages, DialogueMessage{ID: id, Message: m})
	}
	d.enforceCapacityLocked()
	return ids
}

func (d *DialogueBuffer) truncateMessage(m Message) Message {
	if m.Role == RoleAssistant {
		return truncateMessageParts(m, d.compressMaxLen)
	}
	if m.Role == RoleTool {
		parts := make([]Part, len(m.Parts))
		copy(parts, m.Parts)
		for i, p := range parts {
			if p.Kind == PartToolResult && (p.Output == OutputText || p.Output == OutputErrorText) {
				if len(p.OutputText) > d.compressMaxLen {
					p.OutputText = truncateHead(p.OutputText, d.compressMaxLen)
				}
				parts[i] = p
			}
		}
		m.Parts = parts
	}
	return m
}

// GetMessages returns a snapshot copy of the raw Messages, in order.
func (d *DialogueBuffer) GetMessages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	for i, dm := range d.messages {
		out[i] = dm.Message
	}
	return out
}

// RemoveMessageByID removes the message with the given id. If cascade is
// true, every message after it is also removed (used when rolling back a
// multi-turn exchange).
func (d *DialogueBuffer) RemoveMessageByID(id string, cascade bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i, dm := range d.messages {
		if dm.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if cascade {
		d.messages = d.messages[:idx]
	} else {
		d.messages = append(d.messages[:idx], d.messages[idx+1:]...)
	}
	d.repairLocked()
	return true
}

// BuildMessages emits a provider-ready prompt: a system message prepended
// to the current buffer contents.
func (d *DialogueBuffer) BuildMessages(systemPrompt string) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, 0, len(d.messages)+1)
	out = append(out, SystemText(systemPrompt))
	for _, dm := range d.messages {
		out = append(out, dm.Message)
	}
	return out
}

// enforceCapacityLocked trims the oldest messages until both maxMessages
// and maxTokens hold, then runs continuity repair.
func (d *DialogueBuffer) enforceCapacityLocked() {
	for d.overCapacityLocked() && len(d.messages) > 0 {
		d.messages = d.messages[1:]
	}
	d.repairLocked()
}

func (d *DialogueBuffer) overCapacityLocked() bool {
	if d.maxMessages > 0 && len(d.messages) > d.maxMessages {
		return true
	}
	if d.maxTokens > 0 {
		plain := make([]Message, len(d.messages))
		for i, dm := range d.messages {
			plain[i] = dm.Message
		}
		if EstimateMessages(plain) > d.maxTokens {
			return true
		}
	}
	return false
}

func (d *DialogueBuffer) repairLocked() {
	plain := make([]Message, len(d.messages))
	for i, dm := range d.messages {
		plain[i] = dm.Message
	}
	fixed := FixDiscontinuousMessages(plain)

	// Best-effort id preservation: walk fixed messages and match them
	// against the original slice in order; anything synthesized or
	// reordered by FixDiscontinuousMessages gets a fresh id.
	out := make([]DialogueMessage, 0, len(fixed))
	j := 0
	for _, m := range fixed {
		if j < len(d.messages) && d.messages[j].Message.Role == m.Role && d.messages[j].Message.TextContent() == m.TextContent() {
			out = append(out, DialogueMessage{ID: d.messages[j].ID, Message: m})
			j++
			continue
		}
		out = append(out, DialogueMessage{ID: uuid.NewString(), Message: m})
	}
	d.messages = out
}

// Len returns the number of messages currently buffered.
func (d *DialogueBuffer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}
