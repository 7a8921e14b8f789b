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

// Package chain implements the hierarchical, append-only event record of
// one task's execution tree: task -> agent -> tool.
//
// Children never hold a reference back to their parent. A parent wires
// itself to a child's updates at Push time via an injected callback, so
// the observer graph never forms a reference cycle and children can be
// garbage collected independently of whether a parent still exists.
package chain

import (
	"sync"
)

// UpdateEvent is published whenever a mutable field on a chain node (its
// params or result slots) changes.
type UpdateEvent struct {
	Type   string // always "update"
	Target any    // the AgentChain or ToolChain that changed
}

// Listener receives UpdateEvents. Implementations must not block; the
// chain calls listeners synchronously and in subscription order.
type Listener func(UpdateEvent)

// observable is embedded by every chain node and provides the
// subscribe/publish primitive used to bubble updates upward.
type observable struct {
	mu        sync.Mutex
	listeners []Listener
}

func (o *observable) onUpdate(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *observable) publish(target any) {
	o.mu.Lock()
	listeners := append([]Listener(nil), o.listeners...)
	o.mu.Unlock()

	for _, l := range listeners {
		l(UpdateEvent{Type: "update", Target: target})
	}
}

// ToolChain records one executed tool call within an AgentChain.
type ToolChain struct {
	observable

	CallID string
	Name   string
	Params map[string]any

	mu     sync.Mutex
	result any
}

// NewToolChain creates a ToolChain for the given call id/name/params.
func NewToolChain(callID, name string, params map[string]any) *ToolChain {
	return &ToolChain{CallID: callID, Name: name, Params: params}
}

// SetResult records the tool's result and publishes an update.
func (tc *ToolChain) SetResult(result any) {
	tc.mu.Lock()
	tc.result = result
	tc.mu.Unlock()
	tc.publish(tc)
}

// Result returns the tool's recorded result, or nil if not yet set.
func (tc *ToolChain) Result() any {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.result
}

// AgentChain records one agent's run within a task Chain: its LLM
// request, final text, and the ordered ToolChains it produced.
type AgentChain struct {
	observable

	AgentName string
	Request   any // the assembled provider request, opaque to the chain

	mu    sync.Mutex
	text  string
	tools []*ToolChain
}

// NewAgentChain creates an AgentChain for the given agent name.
func NewAgentChain(agentName string) *AgentChain {
	return &AgentChain{AgentName: agentName}
}

// SetRequest records the agent's LLM request and publishes an update.
func (ac *AgentChain) SetRequest(req any) {
	ac.mu.Lock()
	ac.Request = req
	ac.mu.Unlock()
	ac.publish(ac)
}

// SetText records the agent's final text and publishes an update.
func (ac *AgentChain) SetText(text string) {
	ac.mu.Lock()
	ac.text = text
	ac.mu.Unlock()
	ac.publish(ac)
}

// Text returns the agent's recorded final text.
func (ac *AgentChain) Text() string {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.text
}

// Push appends a ToolChain to this AgentChain and wires its updates to
// bubble through this AgentChain's own publish.
func (ac *AgentChain) Push(tc *ToolChain) {
	ac.mu.Lock()
	ac.tools = append(ac.tools, tc)
	ac.mu.Unlock()

	tc.onUpdate(func(UpdateEvent) { ac.publish(tc) })
	ac.publish(ac)
}

// Tools returns the ordered ToolChains recorded so far.
func (ac *AgentChain) Tools() []*ToolChain {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	out := make([]*ToolChain, len(ac.tools))
	copy(out, ac.tools)
	return out
}

// Chain is the task-level event root: the plan request/result plus the
// ordered AgentChains for every agent run so far.
type Chain struct {
	observable

	TaskID string

	mu         sync.Mutex
	planReq    any
	planResult any
	agents     []*AgentChain
}

// New creates an empty Chain for the given task id.
func New(taskID string) *Chain {
	return &Chain{TaskID: taskID}
}

// SetPlan records the planner's request/result pair and publishes an
// update.
func (c *Chain) SetPlan(req, result any) {
	c.mu.Lock()
	c.planReq = req
	c.planResult = result
	c.mu.Unlock()
	c.publish(c)
}

// Plan returns the recorded plan request/result.
func (c *Chain) Plan() (req, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planReq, c.planResult
}

// Push appends an AgentChain to this Chain and wires its updates to
// bubble through this Chain's own publish: a parent's push event fires
// before any child event bubbled through that parent.
func (c *Chain) Push(ac *AgentChain) {
	c.mu.Lock()
	c.agents = append(c.agents, ac)
	c.mu.Unlock()

	c.publish(c)
	ac.onUpdate(func(UpdateEvent) { c.publish(ac) })
}

// Agents returns the ordered AgentChains recorded so far.
func (c *Chain) Agents() []*AgentChain {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*AgentChain, len(c.agents))
	copy(out, c.agents)
	return out
}

// Subscribe registers a listener for every update event bubbled to the
// root of this Chain.
func (c *Chain) Subscribe(l Listener) {
	c.onUpdate(l)
}
