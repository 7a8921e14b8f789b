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

package workflow

import (
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

// ToolCallPart wraps a workflow-declared directive (the <variable>,
// <forEach>, or <watch> blocks a node's XML body may carry) as an A2A
// DataPart, the same structured-payload envelope hector attaches
// alongside text parts for tool-approval and similar machine-read state.
func ToolCallPart(directive, nodeID string, payload map[string]any) a2a.Part {
	data := map[string]any{"type": directive, "node_id": nodeID}
	for k, v := range payload {
		data[k] = v
	}
	return a2a.DataPart{Data: data}
}

// xmlDirective reports which synthetic-tool directive, if any, wa's XML
// body declares.
func (wa *WorkflowAgent) xmlDirective() string {
	switch {
	case strings.Contains(wa.XML, "<variable"):
		return "variable_storage"
	case strings.Contains(wa.XML, "<forEach"), strings.Contains(wa.XML, "<foreach"):
		return "foreach_task"
	case strings.Contains(wa.XML, "<watch"):
		return "watch_trigger"
	default:
		return ""
	}
}

// ToA2AMessage renders this node's task text (and, when its XML body
// declares one, its synthetic-tool directive) as a user-role A2A
// message. Returns nil for a node with neither.
func (wa *WorkflowAgent) ToA2AMessage() *a2a.Message {
	if wa == nil {
		return nil
	}
	var parts []a2a.Part
	if wa.Task != "" {
		parts = append(parts, a2a.TextPart{Text: wa.Task})
	}
	if directive := wa.xmlDirective(); directive != "" {
		parts = append(parts, ToolCallPart(directive, wa.ID, map[string]any{"xml": wa.XML}))
	}
	if len(parts) == 0 {
		return nil
	}
	return a2a.NewMessage(a2a.MessageRoleUser, parts...)
}

// ResultMessage renders this node's recorded result as an agent-role A2A
// message, the envelope handed to dependent nodes. Returns nil before
// the node has a result.
func (wa *WorkflowAgent) ResultMessage() *a2a.Message {
	if wa == nil || wa.Result == "" {
		return nil
	}
	return a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: wa.Result})
}

// DependencyMessages resolves wa.DependsOn against w and returns each
// predecessor's ResultMessage, in declared dependency order, so a
// downstream agent sees its predecessors' output framed the same way an
// A2A client would see a remote agent's response.
func (wa *WorkflowAgent) DependencyMessages(w *Workflow) []*a2a.Message {
	if wa == nil || w == nil {
		return nil
	}
	var out []*a2a.Message
	for _, name := range wa.DependsOn {
		dep := w.AgentByName(name)
		if dep == nil {
			continue
		}
		if m := dep.ResultMessage(); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// A2AMessageText concatenates every TextPart in msg in order, mirroring
// hector's pkg/server toHectorContent text-extraction step. DataParts
// and other non-text parts are ignored.
func A2AMessageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range msg.Parts {
		if tp, ok := p.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}
