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

// Package capability implements named, reusable bundles of tools plus
// guide text that agents can be composed from.
package capability

import (
	"github.com/arcflow-run/arcflow/pkg/registry"
	"github.com/arcflow-run/arcflow/pkg/tools"
)

// Capability groups a named set of tools with prompt guidance describing
// how and when an agent should use them.
type Capability interface {
	Name() string
	Tools() []tools.Tool
	Guide() string
}

type staticCapability struct {
	name  string
	tools []tools.Tool
	guide string
}

// New builds a Capability from a fixed tool list and guide text.
func New(name, guide string, tools ...tools.Tool) Capability {
	return &staticCapability{name: name, tools: tools, guide: guide}
}

func (c *staticCapability) Name() string        { return c.name }
func (c *staticCapability) Tools() []tools.Tool { return c.tools }
func (c *staticCapability) Guide() string       { return c.guide }

// Registry holds named capabilities, first-registered-wins like the tool
// registry it composes with.
type Registry struct {
	base *registry.BaseRegistry[Capability]
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Capability]()}
}

// Register adds a capability.
func (r *Registry) Register(c Capability) {
	r.base.RegisterFirstWins(c.Name(), c)
}

// Lookup finds a capability by name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	return r.base.Get(name)
}

// List returns every registered capability in registration order.
func (r *Registry) List() []Capability {
	return r.base.List()
}
