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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_PushBubblesBeforeChildEvents(t *testing.T) {
	c := New("task-1")

	var order []string
	c.Subscribe(func(ev UpdateEvent) {
		if ev.Target == c {
			order = append(order, "chain")
		}
		if ac, ok := ev.Target.(*AgentChain); ok {
			order = append(order, "agent:"+ac.AgentName)
		}
	})

	ac := NewAgentChain("writer")
	c.Push(ac)
	ac.SetText("hello")

	require.Len(t, order, 2)
	assert.Equal(t, "chain", order[0], "parent push event must fire before any bubbled child event")
	assert.Equal(t, "agent:writer", order[1])
}

func TestAgentChain_ToolChainOrderPreserved(t *testing.T) {
	ac := NewAgentChain("a")
	tc1 := NewToolChain("c1", "add", map[string]any{"a": 1})
	tc2 := NewToolChain("c2", "sub", map[string]any{"a": 2})
	ac.Push(tc1)
	ac.Push(tc2)

	tools := ac.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "c1", tools[0].CallID)
	assert.Equal(t, "c2", tools[1].CallID)
}

func TestChainView_DropsBackReferencesAndFunctions(t *testing.T) {
	c := New("task-1")
	ac := NewAgentChain("writer")
	c.Push(ac)
	ac.SetRequest(map[string]any{"messages": 3})
	tc := NewToolChain("c1", "add", map[string]any{"a": 1, "b": 2})
	tc.SetResult("3")
	ac.Push(tc)

	view := c.View()
	assert.Equal(t, "task-1", view.TaskID)
	require.Len(t, view.Agents, 1)
	assert.Equal(t, "writer", view.Agents[0].AgentName)
	assert.True(t, view.Agents[0].HasRequest)
	require.Len(t, view.Agents[0].Tools, 1)
	assert.Equal(t, "3", view.Agents[0].Tools[0].Result)
}

func TestToolChain_SetResultPublishesUpdate(t *testing.T) {
	tc := NewToolChain("c1", "add", nil)
	var got []UpdateEvent
	tc.onUpdate(func(ev UpdateEvent) { got = append(got, ev) })
	tc.SetResult(42)
	require.Len(t, got, 1)
	assert.Equal(t, tc, got[0].Target)
}
