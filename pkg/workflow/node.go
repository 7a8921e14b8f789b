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

// NodeKind distinguishes a single-agent traversal step from a group of
// agents meant to run side by side.
type NodeKind string

const (
	KindNormal   NodeKind = "normal"
	KindParallel NodeKind = "parallel"
)

// Node is one step of the runtime traversal tree built by the
// orchestrator from a Workflow's DAG. It is distinct from WorkflowAgent:
// WorkflowAgent is the planner's declared node, Node is the orchestrator's
// execution-order view over those declarations.
type Node struct {
	Kind NodeKind

	// Agent is set when Kind == KindNormal.
	Agent *WorkflowAgent

	// Agents is set when Kind == KindParallel; every entry is a sibling
	// with no ordering constraint between them.
	Agents []*WorkflowAgent

	// Next is the next Node in traversal order, or nil at the end.
	Next *Node

	// Result holds the joined result once this node has executed.
	Result string
}

// BuildTraversal builds the Node chain from the subset of agents
// currently in StatusInit, following the canonical traversal semantics:
// topological order, grouping nodes whose dependencies are all satisfied
// by already-Done agents or by agents in earlier Nodes into a parallel
// Node; a group of one becomes a normal Node.
func BuildTraversal(w *Workflow) (*Node, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	done := make(map[string]bool)
	pending := make(map[string]*WorkflowAgent)
	for _, a := range w.Agents {
		switch a.Status {
		case StatusDone:
			done[a.Name] = true
		case StatusInit:
			pending[a.Name] = a
		}
	}

	var head, tail *Node
	appendNode := func(n *Node) {
		if head == nil {
			head = n
			tail = n
			return
		}
		tail.Next = n
		tail = n
	}

	for len(pending) > 0 {
		ready := readyGroup(pending, done)
		if len(ready) == 0 {
			// Should not happen given Validate() guarantees a DAG, but
			// guard against a degenerate input rather than looping
			// forever.
			break
		}

		if len(ready) == 1 {
			a := ready[0]
			appendNode(&Node{Kind: KindNormal, Agent: a})
		} else {
			appendNode(&Node{Kind: KindParallel, Agents: ready})
		}

		for _, a := range ready {
			done[a.Name] = true
			delete(pending, a.Name)
		}
	}

	return head, nil
}

// readyGroup returns, in stable declaration order, every still-pending
// agent whose dependencies are all satisfied by already-done agents. It
// does not consider agents within the same group as satisfying each
// other's dependencies, since those would not be independent.
func readyGroup(pending map[string]*WorkflowAgent, done map[string]bool) []*WorkflowAgent {
	var ready []*WorkflowAgent
	// Iterate in a deterministic order derived from insertion into the
	// workflow rather than Go's randomized map order.
	order := make([]*WorkflowAgent, 0, len(pending))
	for _, a := range pending {
		order = append(order, a)
	}
	sortByOriginalOrder(order)

	for _, a := range order {
		if allSatisfied(a.DependsOn, done) {
			ready = append(ready, a)
		}
	}
	return ready
}

func allSatisfied(deps []string, done map[string]bool) bool {
	for _, d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

// sortByOriginalOrder is a tiny stable insertion sort keyed on the
// WorkflowAgent's position field (set by the planner / Workflow
// constructor) so traversal is deterministic across runs.
func sortByOriginalOrder(agents []*WorkflowAgent) {
	for i := 1; i < len(agents); i++ {
		for j := i; j > 0 && agents[j-1].order() > agents[j].order(); j-- {
			agents[j-1], agents[j] = agents[j], agents[j-1]
		}
	}
}

// order derives a stable sort key from the agent's position in its
// parent Workflow.Agents slice, stashed by NewWorkflow. Agents built
// without NewWorkflow default to 0, which is a
// harmless ties-broken-by-stability case for single-agent workflows.
func (a *WorkflowAgent) order() int { return a.ord }
