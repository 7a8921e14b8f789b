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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow-run/arcflow/pkg/tools"
)

func TestMCPDiscoveryClient_ListAgentsIsAlwaysEmpty(t *testing.T) {
	c := NewMCPDiscoveryClient(tools.NewMCPClient(tools.MCPConfig{Name: "x", Command: "unused"}))
	agents, err := c.ListAgents(context.Background(), "any prompt")
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestMCPDiscoveryClient_CallToolUnknownNameIsError(t *testing.T) {
	c := NewMCPDiscoveryClient(tools.NewMCPClient(tools.MCPConfig{Name: "x", Command: "unused"}))
	res, err := c.CallTool(context.Background(), ToolCallRequest{Name: "ghost"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "ghost tool does not exist", res.Text)
}

func TestToolFromSchema_DispatchesThroughClientCallTool(t *testing.T) {
	fake := &fakeDiscoveryClient{}
	tool := toolFromSchema(fake, ToolSchema{Name: "remote_tool", Description: "d"})
	assert.Equal(t, "remote_tool", tool.Name)

	res, err := tool.Execute(context.Background(), map[string]any{"x": 1}, "c1")
	require.NoError(t, err)
	assert.Equal(t, "remote result", res.Text)
	assert.Equal(t, []string{"remote_tool"}, fake.called)
}
