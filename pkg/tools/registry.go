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
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/registry"
)

// Registry holds the tools visible to one agent or task.
type Registry struct {
	base *registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Tool]()}
}

// Register adds a tool. If a tool with the same name already exists, the
// existing registration is kept (first registered wins).
func (r *Registry) Register(t Tool) {
	r.base.RegisterFirstWins(t.Name, t)
}

// Lookup finds a tool by exact, case-sensitive name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	return r.base.Get(name)
}

// List returns every registered tool in registration order.
func (r *Registry) List() []Tool {
	return r.base.List()
}

// Schemas renders every planner-visible tool (NoPlan excluded) as the
// provider-facing function-tool shape.
func (r *Registry) Schemas() []llm.ToolSchema {
	var out []llm.ToolSchema
	for _, t := range r.base.List() {
		if t.NoPlan {
			continue
		}
		out = append(out, t.Schema())
	}
	return out
}
