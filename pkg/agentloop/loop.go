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
	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/chain"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/memory"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
	"github.com/arcflow-run/arcflow/pkg/tools"
	"github.com/arcflow-run/arcflow/pkg/workflow"
)

// Loop drives one agent's ReAct execution against a Task:
// assemble the effective tool set and prompts, then alternate assistant
// steps with tool dispatch until a final answer, forceStop, or the
// iteration cap is reached.
type Loop struct {
	Turn *llm.TurnEngine
	Sink callback.Sink
}

// NewLoop builds a Loop over the given turn engine. A nil sink defaults
// to callback.Noop.
func NewLoop(turn *llm.TurnEngine, sink callback.Sink) *Loop {
	if sink == nil {
		sink = callback.Noop
	}
	return &Loop{Turn: turn, Sink: sink}
}

// taskStatusRecorder satisfies taskctx.Agent so Task.AbortTask can notify
// a running loop; the loop itself always learns of an abort via
// AgentContext.CheckAborted, so this only needs to surface the
// notification on the callback sink.
type taskStatusRecorder struct {
	loop *Loop
	ac   *taskctx.AgentContext
}

func (r *taskStatusRecorder) OnTaskStatus(status string) {
	_ = r.loop.Sink.Emit(r.ac.Context(), callback.Event{
		TaskID:    r.ac.ID,
		AgentName: r.ac.AgentName,
		Type:      callback.EventTaskStatus,
		Payload:   status,
	})
}

// Run executes agent against task for one node of the workflow, returning
// the agent's final textual answer, "Unfinished" if the iteration cap was
// reached, or an error on abort / unrecoverable failure.
func (l *Loop) Run(task *taskctx.Task, agent *Agent, node *workflow.WorkflowAgent, mainTaskPrompt string) (string, error) {
	var achain *chain.AgentChain
	var endSpan func()
	if task.Chain != nil {
		achain = chain.NewAgentChain(agent.Name)
		_, endSpan = chain.TracedPush(task.Context(), task.Chain, achain)
		defer endSpan()
	}
	return l.run(task, agent, node, mainTaskPrompt, achain)
}

// RunChained behaves like Run but uses an AgentChain the caller has
// already created and pushed onto task.Chain. The orchestrator uses this
// for parallel sibling agents: siblings must be pushed in their declared
// order before any of them starts, since concurrent goroutines racing on
// Chain.Push would otherwise append AgentChains in whatever order their
// execution happened to finish.
func (l *Loop) RunChained(task *taskctx.Task, agent *Agent, node *workflow.WorkflowAgent, mainTaskPrompt string, achain *chain.AgentChain) (string, error) {
	return l.run(task, agent, node, mainTaskPrompt, achain)
}

func (l *Loop) run(task *taskctx.Task, agent *Agent, node *workflow.WorkflowAgent, mainTaskPrompt string, achain *chain.AgentChain) (string, error) {
	ac := taskctx.NewAgentContext(task, agent.Name)
	recorder := &taskStatusRecorder{loop: l, ac: ac}
	task.SetCurrentAgent(recorder)

	reg := buildEffectiveTools(agent, node, task.Variables())
	systemPrompt := buildSystemPrompt(agent, reg)
	compress := newCompressFunc(l.Turn, ac, systemPrompt, task.Config, l.Sink)

	buffer := memory.NewBuffer()
	buffer.Append(memory.UserText(buildUserMessage(node, task.Workflow, mainTaskPrompt, task.Variables())))

	_ = l.Sink.Emit(task.Context(), callback.Event{TaskID: task.ID, AgentName: agent.Name, Type: callback.EventAgentStart})

	maxReactNum := task.Config.MaxReactNum
	if maxReactNum <= 0 {
		maxReactNum = 100
	}

	var usedRemoteTools []tools.Tool

	for iteration := 0; iteration < maxReactNum; iteration++ {
		if err := ac.CheckAborted(false); err != nil {
			return "", err
		}

		if agent.MCPClient != nil && (iteration == 0 || agent.ControlMCPTools) {
			schemas, err := agent.MCPClient.ListTools(task.Context())
			if err == nil {
				fresh := make([]tools.Tool, 0, len(schemas))
				for _, s := range schemas {
					fresh = append(fresh, toolFromSchema(agent.MCPClient, s))
				}
				usedRemoteTools = mergeByName(usedRemoteTools, fresh)
				for _, t := range usedRemoteTools {
					reg.Register(t)
				}
			}
		}

		buffer.Replace(memory.HandleLargeContextMessages(buffer.Messages(), task.Config.MaxDialogueImgFileNum, task.Config.LargeTextLength))

		stepOpts := llm.StepOptions{
			SystemPrompt:            systemPrompt,
			Tools:                   reg.Schemas(),
			NoCompress:              false,
			CompressThreshold:       task.Config.CompressThreshold,
			CompressTokensThreshold: task.Config.CompressTokensThreshold,
			Compress:                compress,
			DrainConversation:       task.Conversation().DrainAll,
			MaxRetryNum:             task.Config.MaxRetryNum,
			WithStep:                ac.WithStep,
			Sink:                    l.Sink,
			TaskID:                  task.ID,
			AgentName:               agent.Name,
		}

		messages, result, err := l.Turn.Step(task.Context(), buffer.Messages(), stepOpts)
		if err != nil {
			return "", err
		}
		buffer.Replace(messages)
		buffer.Append(assistantMessage(result.Parts))

		if achain != nil {
			achain.SetRequest(stepOpts)
		}

		if v, ok := task.Variables().Get(taskctx.VarForceStop); ok {
			final, _ := v.(string)
			if final == "" {
				final = textFromParts(result.Parts)
			}
			if achain != nil {
				achain.SetText(final)
			}
			l.emitFinish(task, agent.Name, final)
			return final, nil
		}

		if len(result.Parts) == 0 {
			// Neither text nor a tool call: the assistant message just
			// appended above is empty. Per the ReAct "no parts" case,
			// this is not a final answer — continue the loop rather than
			// finalizing with an empty string.
			continue
		}

		calls := toolCallParts(result.Parts)
		if len(calls) == 0 {
			final := textFromParts(result.Parts)

			if agent.ExpertMode && ac.CheckNum == 0 {
				ac.CheckNum++
				complete, checkErr := l.runCompletionCheck(task, ac, buffer, systemPrompt)
				if checkErr != nil {
					return "", checkErr
				}
				if !complete {
					buffer.Append(memory.UserText("The task is not yet complete. Continue working."))
					continue
				}
			}

			if achain != nil {
				achain.SetText(final)
			}
			l.emitFinish(task, agent.Name, final)
			return final, nil
		}

		toolMsg, synthesized, err := tools.Dispatch(task.Context(), reg, calls, tools.DispatchOptions{
			GlobalParallel:   task.Variables().BoolOr(taskctx.VarParallelToolCalls, task.Config.ParallelToolCalls),
			AgentCanParallel: agent.CanParallelToolCalls,
			Multimodal:       task.Config.ToolResultMultimodal,
			Errors:           ac,
			Sink:             l.Sink,
			TaskID:           task.ID,
			AgentName:        agent.Name,
		})
		if err != nil {
			return "", err
		}
		buffer.Append(toolMsg)
		for _, m := range synthesized {
			buffer.Append(m)
		}

		if achain != nil {
			for _, p := range toolMsg.ToolResultParts() {
				tc := chain.NewToolChain(p.ToolCallID, p.ToolName, nil)
				tc.SetResult(p)
				_, endToolSpan := chain.TracedToolPush(task.Context(), achain, tc)
				endToolSpan()
			}
		}

		if agent.ExpertMode && task.Config.ExpertModeTodoLoopNum > 0 && (iteration+1)%task.Config.ExpertModeTodoLoopNum == 0 {
			if err := l.runTodoMaintenance(task, ac, buffer, systemPrompt); err != nil {
				return "", err
			}
		}
	}

	return "Unfinished", nil
}

func (l *Loop) emitFinish(task *taskctx.Task, agentName, final string) {
	_ = l.Sink.Emit(task.Context(), callback.Event{
		TaskID:    task.ID,
		AgentName: agentName,
		Type:      callback.EventAgentFinish,
		Payload:   final,
	})
}

func assistantMessage(parts []llm.Part) memory.Message {
	out := make([]memory.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case llm.PartText:
			out = append(out, memory.TextPart(p.Text))
		case llm.PartToolCall:
			out = append(out, memory.Part{
				Kind:       memory.PartToolCall,
				ToolCallID: p.ToolCallID,
				ToolName:   p.ToolName,
				Input:      p.Input,
			})
		}
	}
	return memory.AssistantParts(out...)
}

func textFromParts(parts []llm.Part) string {
	var out string
	for _, p := range parts {
		if p.Kind == llm.PartText {
			out += p.Text
		}
	}
	return out
}

func toolCallParts(parts []llm.Part) []llm.Part {
	var out []llm.Part
	for _, p := range parts {
		if p.Kind == llm.PartToolCall {
			out = append(out, p)
		}
	}
	return out
}

func mergeByName(existing, fresh []tools.Tool) []tools.Tool {
	seen := make(map[string]bool, len(existing))
	out := append([]tools.Tool{}, existing...)
	for _, t := range existing {
		seen[t.Name] = true
	}
	for _, t := range fresh {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}
