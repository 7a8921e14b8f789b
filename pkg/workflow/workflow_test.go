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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DetectsUnknownDependency(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a", DependsOn: []string{"ghost"}},
	})
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestValidate_DetectsCycle(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	})
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildTraversal_GroupsIndependentAgents(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", DependsOn: []string{"a", "b"}},
	})
	head, err := BuildTraversal(w)
	require.NoError(t, err)
	require.NotNil(t, head)

	assert.Equal(t, KindParallel, head.Kind)
	require.Len(t, head.Agents, 2)
	assert.Equal(t, "a", head.Agents[0].Name)
	assert.Equal(t, "b", head.Agents[1].Name)

	require.NotNil(t, head.Next)
	assert.Equal(t, KindNormal, head.Next.Kind)
	assert.Equal(t, "c", head.Next.Agent.Name)
	assert.Nil(t, head.Next.Next)
}

func TestBuildTraversal_SkipsAlreadyDoneAgents(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a", Status: StatusDone},
		{Name: "b", DependsOn: []string{"a"}},
	})
	head, err := BuildTraversal(w)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, KindNormal, head.Kind)
	assert.Equal(t, "b", head.Agent.Name)
	assert.Nil(t, head.Next)
}

func TestBuildTraversal_LinearChainIsAllNormal(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
		{Name: "c", DependsOn: []string{"b"}},
	})
	head, err := BuildTraversal(w)
	require.NoError(t, err)

	var names []string
	for n := head; n != nil; n = n.Next {
		require.Equal(t, KindNormal, n.Kind)
		names = append(names, n.Agent.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
