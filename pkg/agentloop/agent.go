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

// Package agentloop implements the per-agent ReAct loop: assemble the
// effective tool set and prompts, drive the Stream Turn Engine, dispatch
// tool calls, and apply the expert-mode completion check and snapshot
// compression.
package agentloop

import (
	"github.com/arcflow-run/arcflow/pkg/capability"
	"github.com/arcflow-run/arcflow/pkg/tools"
)

// Agent is the static configuration of one agent definition: its tools,
// capabilities, and loop policy. A single Agent value may be run against
// many different workflow nodes/tasks.
type Agent struct {
	Name        string
	Description string

	// SystemPrompt is a persisted base prompt. When empty, the loop builds
	// one from Description and the effective tool catalog.
	SystemPrompt string

	Tools        []tools.Tool
	Capabilities []capability.Capability

	// MCPClient, if set, is polled for its tool list per ControlMCPTools.
	// Typed against ToolDiscoveryClient so a non-MCP discovery source can
	// be substituted; MCPDiscoveryClient adapts tools.MCPClient to it.
	MCPClient ToolDiscoveryClient

	// ControlMCPTools, when true, refreshes the MCP tool list on every
	// iteration instead of only on iteration 0.
	ControlMCPTools bool

	CanParallelToolCalls bool
	ExpertMode           bool
}
