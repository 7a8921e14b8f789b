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

// Package workflow defines the dependency-DAG data model produced by the
// planner and traversed by the orchestrator.
package workflow

import "fmt"

// Status is the execution status of a WorkflowAgent node.
type Status string

const (
	StatusInit    Status = "init"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// WorkflowAgent is one node in the planned workflow DAG.
type WorkflowAgent struct {
	ID   string
	Name string // agent name to invoke
	Task string // task text for this node

	// DependsOn lists the names of WorkflowAgent nodes that must reach
	// StatusDone before this node may run.
	DependsOn []string

	Status Status

	// XML is the opaque node body carried for re-parsing on replan
	//.
	XML string

	// Result holds the node's textual result once Status is Done or Error.
	Result string

	// ord is the agent's position in its Workflow, used to make
	// traversal grouping deterministic. Set by NewWorkflow.
	ord int
}

// Workflow is the ordered sequence of WorkflowAgent nodes produced by the
// planner for one task.
type Workflow struct {
	TaskID string
	Name   string
	Agents []*WorkflowAgent

	// Modified is set by a replan routine to force the orchestrator to
	// rebuild its traversal tree from the remaining init nodes.
	Modified bool
}

// NewWorkflow builds a Workflow from a flat agent list, stamping each
// agent's declaration order so traversal grouping is deterministic.
func NewWorkflow(taskID, name string, agents []*WorkflowAgent) *Workflow {
	for i, a := range agents {
		a.ord = i
		if a.Status == "" {
			a.Status = StatusInit
		}
	}
	return &Workflow{TaskID: taskID, Name: name, Agents: agents}
}

// AgentByName returns the node with the given name, or nil.
func (w *Workflow) AgentByName(name string) *WorkflowAgent {
	for _, a := range w.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Validate checks the DAG invariant: the dependency graph
// is acyclic and every DependsOn name resolves to another node.
func (w *Workflow) Validate() error {
	if len(w.Agents) == 0 {
		return fmt.Errorf("workflow: no agents")
	}

	byName := make(map[string]*WorkflowAgent, len(w.Agents))
	for _, a := range w.Agents {
		if _, dup := byName[a.Name]; dup {
			return fmt.Errorf("workflow: duplicate agent name %q", a.Name)
		}
		byName[a.Name] = a
	}
	for _, a := range w.Agents {
		for _, dep := range a.DependsOn {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("workflow: agent %q depends on unknown agent %q", a.Name, dep)
			}
		}
	}

	// Cycle detection via DFS coloring.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(w.Agents))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("workflow: dependency cycle involving %q", name)
		}
		color[name] = gray
		for _, dep := range byName[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, a := range w.Agents {
		if err := visit(a.Name); err != nil {
			return err
		}
	}
	return nil
}
