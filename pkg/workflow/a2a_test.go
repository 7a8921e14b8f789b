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

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToA2AMessage_CarriesTaskText(t *testing.T) {
	wa := &WorkflowAgent{Name: "a", Task: "summarize the report"}
	msg := wa.ToA2AMessage()
	require.NotNil(t, msg)
	assert.Equal(t, a2a.MessageRoleUser, msg.Role)
	assert.Equal(t, "summarize the report", A2AMessageText(msg))
}

func TestToA2AMessage_AttachesDirectiveDataPart(t *testing.T) {
	wa := &WorkflowAgent{ID: "n1", Name: "a", Task: "loop", XML: `<agent><forEach items="x"/></agent>`}
	msg := wa.ToA2AMessage()
	require.NotNil(t, msg)
	require.Len(t, msg.Parts, 2)
	dp, ok := msg.Parts[1].(a2a.DataPart)
	require.True(t, ok)
	assert.Equal(t, "foreach_task", dp.Data["type"])
	assert.Equal(t, "n1", dp.Data["node_id"])
}

func TestToA2AMessage_NilOnEmptyNode(t *testing.T) {
	wa := &WorkflowAgent{Name: "a"}
	assert.Nil(t, wa.ToA2AMessage())
	assert.Nil(t, (*WorkflowAgent)(nil).ToA2AMessage())
}

func TestResultMessage_CarriesResultAsAgentRole(t *testing.T) {
	wa := &WorkflowAgent{Name: "a", Result: "the answer is 42"}
	msg := wa.ResultMessage()
	require.NotNil(t, msg)
	assert.Equal(t, a2a.MessageRoleAgent, msg.Role)
	assert.Equal(t, "the answer is 42", A2AMessageText(msg))
}

func TestResultMessage_NilBeforeResultIsSet(t *testing.T) {
	wa := &WorkflowAgent{Name: "a"}
	assert.Nil(t, wa.ResultMessage())
}

func TestDependencyMessages_ResolvesInDeclaredOrder(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a", Result: "result a", Status: StatusDone},
		{Name: "b", Result: "result b", Status: StatusDone},
		{Name: "c", DependsOn: []string{"a", "b"}},
	})
	c := w.AgentByName("c")
	msgs := c.DependencyMessages(w)
	require.Len(t, msgs, 2)
	assert.Equal(t, "result a", A2AMessageText(msgs[0]))
	assert.Equal(t, "result b", A2AMessageText(msgs[1]))
}

func TestDependencyMessages_SkipsUnresolvedOrEmptyResults(t *testing.T) {
	w := NewWorkflow("t1", "plan", []*WorkflowAgent{
		{Name: "a"},
		{Name: "c", DependsOn: []string{"a", "ghost"}},
	})
	c := w.AgentByName("c")
	assert.Empty(t, c.DependencyMessages(w))
}
