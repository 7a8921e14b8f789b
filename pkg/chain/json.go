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

package chain

// ToolChainView is the serialization-safe projection of a ToolChain:
// functions and back-references are dropped.
type ToolChainView struct {
	CallID string         `json:"callId"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
	Result any            `json:"result,omitempty"`
}

// View returns a serialization-safe snapshot of this ToolChain.
func (tc *ToolChain) View() ToolChainView {
	return ToolChainView{
		CallID: tc.CallID,
		Name:   tc.Name,
		Params: tc.Params,
		Result: tc.Result(),
	}
}

// AgentChainView is the serialization-safe projection of an AgentChain.
// The Request field is reduced to a HasRequest flag recording whether a
// request was set; the request itself, and any count of its messages or
// tools, is not serialized.
type AgentChainView struct {
	AgentName  string          `json:"agentName"`
	HasRequest bool            `json:"hasRequest"`
	Text       string          `json:"text"`
	Tools      []ToolChainView `json:"tools"`
}

// View returns a serialization-safe snapshot of this AgentChain.
func (ac *AgentChain) View() AgentChainView {
	tools := ac.Tools()
	views := make([]ToolChainView, len(tools))
	for i, t := range tools {
		views[i] = t.View()
	}
	ac.mu.Lock()
	hasReq := ac.Request != nil
	ac.mu.Unlock()
	return AgentChainView{
		AgentName:  ac.AgentName,
		HasRequest: hasReq,
		Text:       ac.Text(),
		Tools:      views,
	}
}

// ChainView is the serialization-safe projection of a full Chain.
type ChainView struct {
	TaskID     string           `json:"taskId"`
	HasPlan    bool             `json:"hasPlan"`
	PlanResult any              `json:"planResult,omitempty"`
	Agents     []AgentChainView `json:"agents"`
}

// View returns a serialization-safe snapshot of this Chain, suitable for
// ToJSON-style inspection (e.g. the cmd/arcflow "inspect" subcommand).
func (c *Chain) View() ChainView {
	req, result := c.Plan()
	agents := c.Agents()
	views := make([]AgentChainView, len(agents))
	for i, a := range agents {
		views[i] = a.View()
	}
	return ChainView{
		TaskID:     c.TaskID,
		HasPlan:    req != nil,
		PlanResult: result,
		Agents:     views,
	}
}
