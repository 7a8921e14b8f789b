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
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPConfig configures a stdio MCP server connection.
type MCPConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string
}

// MCPClient is a lazily-connected MCP tool source. The agent loop's
// "MCP tool refresh" step calls ListTools on iteration 0 (or per the
// agent's controlMcpTools policy) and wraps the returned schemas as
// ordinary Tool entries.
type MCPClient struct {
	cfg       MCPConfig
	client    *client.Client
	connected bool
	filterSet map[string]bool
}

// NewMCPClient creates a client for the given stdio MCP server.
func NewMCPClient(cfg MCPConfig) *MCPClient {
	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, n := range cfg.Filter {
			filterSet[n] = true
		}
	}
	return &MCPClient{cfg: cfg, filterSet: filterSet}
}

// ListTools connects (lazily, once) and returns the server's tools
// wrapped as arcflow Tool entries.
func (c *MCPClient) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.connected {
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("mcp connect %q: %w", c.cfg.Name, err)
		}
	}

	listResp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp list tools %q: %w", c.cfg.Name, err)
	}

	var out []Tool
	for _, mt := range listResp.Tools {
		if c.filterSet != nil && !c.filterSet[mt.Name] {
			continue
		}
		out = append(out, c.wrap(mt))
	}
	return out, nil
}

func (c *MCPClient) connect(ctx context.Context) error {
	cl, err := client.NewStdioMCPClient(c.cfg.Command, envSlice(c.cfg.Env), c.cfg.Args...)
	if err != nil {
		return err
	}
	if err := cl.Start(ctx); err != nil {
		return err
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "arcflow", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := cl.Initialize(ctx, initReq); err != nil {
		cl.Close()
		return err
	}
	c.client = cl
	c.connected = true
	slog.Info("connected to MCP server", "name", c.cfg.Name, "command", c.cfg.Command)
	return nil
}

func (c *MCPClient) wrap(mt mcp.Tool) Tool {
	name, desc := mt.Name, mt.Description
	return Tool{
		Name:        name,
		Description: desc,
		Parameters:  mt.InputSchema,
		Execute: func(ctx context.Context, args map[string]any, callID string) (Result, error) {
			req := mcp.CallToolRequest{}
			req.Params.Name = name
			req.Params.Arguments = args
			resp, err := c.client.CallTool(ctx, req)
			if err != nil {
				return Result{}, err
			}
			return mcpResultToResult(resp), nil
		},
	}
}

func mcpResultToResult(resp *mcp.CallToolResult) Result {
	if resp == nil {
		return Result{Text: "Successful"}
	}
	res := Result{IsError: resp.IsError}
	if len(resp.Content) == 1 {
		if tc, ok := resp.Content[0].(mcp.TextContent); ok {
			res.Text = tc.Text
			return res
		}
	}
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			res.Parts = append(res.Parts, ResultPart{Kind: ResultText, Text: tc.Text})
		}
	}
	return res
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

