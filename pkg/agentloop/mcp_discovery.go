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

package agentloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/arcflow-run/arcflow/pkg/tools"
)

// AgentDescriptor describes one remote agent a ToolDiscoveryClient can
// hand a task off to.
type AgentDescriptor struct {
	Name        string
	Description string
}

// ToolSchema describes one tool a ToolDiscoveryClient exposes, without
// committing to how it is invoked (see ToolCallRequest/CallTool).
type ToolSchema struct {
	Name        string
	Description string
	Parameters  any // JSON Schema
}

// ToolCallRequest is the argument bundle ToolDiscoveryClient.CallTool
// takes: a tool name, its arguments, and opaque extension info the
// remote side may need (auth context, trace id, ...).
type ToolCallRequest struct {
	Name      string
	Arguments map[string]any
	ExtInfo   map[string]any
}

// ToolDiscoveryClient is the external tool-discovery client contract: an
// optional remote source of agents and tools beyond an agent's own
// static Tools/Capabilities. Agent.MCPClient is typed against this
// interface rather than a concrete client so a non-MCP discovery source
// (an A2A agent directory, a custom registry) can be substituted.
type ToolDiscoveryClient interface {
	// ListAgents discovers remote agents relevant to taskPrompt.
	ListAgents(ctx context.Context, taskPrompt string) ([]AgentDescriptor, error)
	// ListTools returns the schemas this client currently exposes.
	ListTools(ctx context.Context) ([]ToolSchema, error)
	// CallTool invokes a tool previously returned by ListTools.
	CallTool(ctx context.Context, req ToolCallRequest) (tools.Result, error)
}

// toolFromSchema adapts one ToolSchema, plus the client that can execute
// it, into an ordinary tools.Tool so it can be registered alongside an
// agent's own static tools.
func toolFromSchema(client ToolDiscoveryClient, schema ToolSchema) tools.Tool {
	return tools.Tool{
		Name:        schema.Name,
		Description: schema.Description,
		Parameters:  schema.Parameters,
		Execute: func(ctx context.Context, args map[string]any, callID string) (tools.Result, error) {
			return client.CallTool(ctx, ToolCallRequest{Name: schema.Name, Arguments: args})
		},
	}
}

// MCPDiscoveryClient adapts a *tools.MCPClient stdio session to the
// ToolDiscoveryClient interface, grounded on hector's pkg/tools/mcp.go
// connect-then-list pattern. MCP servers expose tools, not a remote-agent
// directory, so ListAgents always returns an empty set.
type MCPDiscoveryClient struct {
	mcp *tools.MCPClient

	mu    sync.Mutex
	tools map[string]tools.Tool
}

// NewMCPDiscoveryClient wraps an existing MCP client session.
func NewMCPDiscoveryClient(mcp *tools.MCPClient) *MCPDiscoveryClient {
	return &MCPDiscoveryClient{mcp: mcp, tools: make(map[string]tools.Tool)}
}

// ListAgents always returns no agents: an MCP session has no concept of
// a remote agent directory.
func (c *MCPDiscoveryClient) ListAgents(ctx context.Context, taskPrompt string) ([]AgentDescriptor, error) {
	return nil, nil
}

// ListTools refreshes and returns the MCP server's current tool schemas,
// caching the underlying tools.Tool values so CallTool can dispatch by
// name without reconnecting.
func (c *MCPDiscoveryClient) ListTools(ctx context.Context) ([]ToolSchema, error) {
	ts, err := c.mcp.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolSchema, 0, len(ts))
	for _, t := range ts {
		c.tools[t.Name] = t
		out = append(out, ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return out, nil
}

// CallTool dispatches to a tool previously returned by ListTools.
func (c *MCPDiscoveryClient) CallTool(ctx context.Context, req ToolCallRequest) (tools.Result, error) {
	c.mu.Lock()
	t, ok := c.tools[req.Name]
	c.mu.Unlock()
	if !ok {
		return tools.Result{IsError: true, Text: fmt.Sprintf("%s tool does not exist", req.Name)}, nil
	}
	return t.Execute(ctx, req.Arguments, "")
}
