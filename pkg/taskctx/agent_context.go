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

package taskctx

// AgentContext is the per-agent-run view of a Task. It wraps the Task with
// state scoped to a single execution: the consecutive-tool-error counter
// used by the error-cascade rule, and the iteration count used by
// expert-mode bookkeeping.
type AgentContext struct {
	*Task

	AgentName string

	ConsecutiveErrorNum int
	CheckNum            int // number of times the completion check has run
	IterationNum        int
}

// NewAgentContext creates an AgentContext for one run of the named agent
// against the given Task.
func NewAgentContext(t *Task, agentName string) *AgentContext {
	return &AgentContext{Task: t, AgentName: agentName}
}

// ResetErrorCount clears the consecutive-tool-error counter after a
// successful tool execution.
func (ac *AgentContext) ResetErrorCount() { ac.ConsecutiveErrorNum = 0 }

// IncrementErrorCount bumps the consecutive-tool-error counter and
// reports whether it has reached the fail-the-agent threshold of 10.
func (ac *AgentContext) IncrementErrorCount() (tripped bool) {
	ac.ConsecutiveErrorNum++
	return ac.ConsecutiveErrorNum >= 10
}
