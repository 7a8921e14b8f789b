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
	"strings"

	"github.com/arcflow-run/arcflow/pkg/taskctx"
	"github.com/arcflow-run/arcflow/pkg/tools"
	"github.com/arcflow-run/arcflow/pkg/workflow"
)

// buildEffectiveTools assembles the merged tool registry for one run:
// agent tools, then capability tools, then system-synthetic tools derived
// from the node's XML body, all via first-registered-wins so an agent's
// own tool always shadows a capability's tool of the same name.
func buildEffectiveTools(agent *Agent, node *workflow.WorkflowAgent, vars *taskctx.Variables) *tools.Registry {
	reg := tools.NewRegistry()
	for _, t := range agent.Tools {
		reg.Register(t)
	}
	for _, c := range agent.Capabilities {
		for _, t := range c.Tools() {
			reg.Register(t)
		}
	}
	for _, t := range syntheticTools(node, vars) {
		reg.Register(t)
	}
	return reg
}

// syntheticTools returns the system tools a workflow node's XML body
// implies it needs: variable I/O, forEach iteration, or a watch trigger.
func syntheticTools(node *workflow.WorkflowAgent, vars *taskctx.Variables) []tools.Tool {
	if node == nil {
		return nil
	}
	var out []tools.Tool
	xml := node.XML
	if strings.Contains(xml, "<variable") {
		out = append(out, variableStorageTool(vars))
	}
	if strings.Contains(xml, "<forEach") || strings.Contains(xml, "<foreach") {
		out = append(out, foreachTaskTool(vars))
	}
	if strings.Contains(xml, "<watch") {
		out = append(out, watchTriggerTool(vars))
	}
	return out
}

type variableArgs struct {
	Key   string `json:"key" jsonschema:"required,description=Variable name to read or write."`
	Value string `json:"value,omitempty" jsonschema:"description=Value to store. Omit to read the current value instead."`
}

// variableStorageTool lets an agent persist or recall a task variable
// declared by a workflow node's <variable> block.
func variableStorageTool(vars *taskctx.Variables) tools.Tool {
	return tools.Wrap("variable_storage", "Read or write a named task variable.", true,
		func(ctx context.Context, args variableArgs, callID string) (tools.Result, error) {
			if args.Value == "" {
				val, ok := vars.Get(args.Key)
				if !ok {
					return tools.Result{Text: fmt.Sprintf("variable %q is not set", args.Key)}, nil
				}
				return tools.Result{Text: fmt.Sprintf("%v", val)}, nil
			}
			vars.Set(args.Key, args.Value)
			return tools.Result{Text: "stored"}, nil
		})
}

type foreachArgs struct {
	Items []string `json:"items" jsonschema:"required,description=Items to iterate over in this node's forEach block."`
}

// foreachTaskTool records the item list a <forEach> workflow node should
// iterate, so the orchestrator's replan step can fan out one sub-task per
// item.
func foreachTaskTool(vars *taskctx.Variables) tools.Tool {
	return tools.Wrap("foreach_task", "Declare the items a forEach workflow node should iterate.", false,
		func(ctx context.Context, args foreachArgs, callID string) (tools.Result, error) {
			vars.Set("foreach_items", args.Items)
			return tools.Result{Text: fmt.Sprintf("recorded %d items", len(args.Items))}, nil
		})
}

type watchArgs struct {
	Condition string `json:"condition" jsonschema:"required,description=Condition that re-triggers this node's <watch> block."`
}

// watchTriggerTool records the condition a <watch> workflow node should
// re-evaluate on a later pass.
func watchTriggerTool(vars *taskctx.Variables) tools.Tool {
	return tools.Wrap("watch_trigger", "Declare the condition a watch workflow node should monitor.", false,
		func(ctx context.Context, args watchArgs, callID string) (tools.Result, error) {
			vars.Set("watch_condition", args.Condition)
			return tools.Result{Text: "watching"}, nil
		})
}

// buildSystemPrompt returns the agent's persisted base prompt, or a fresh
// one built from its description and effective tool catalog, followed by
// every capability's guide text separated by a blank-line gap.
func buildSystemPrompt(agent *Agent, reg *tools.Registry) string {
	base := agent.SystemPrompt
	if base == "" {
		base = fmt.Sprintf("You are %s.\n\n%s\n\n%s", agent.Name, agent.Description, toolCatalog(reg))
	}

	var guides []string
	for _, c := range agent.Capabilities {
		if g := c.Guide(); g != "" {
			guides = append(guides, g)
		}
	}
	if len(guides) == 0 {
		return base
	}
	return base + "\n\n\n" + strings.Join(guides, "\n\n\n")
}

func toolCatalog(reg *tools.Registry) string {
	list := reg.List()
	if len(list) == 0 {
		return "No tools are available."
	}
	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, t := range list {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
	}
	return sb.String()
}

// buildUserMessage composes the node task, its predecessors' results, the
// main task prompt, and any task variables into the loop's initial user
// turn. The node task and each predecessor's result are threaded through
// A2A message envelopes (WorkflowAgent.ToA2AMessage / ResultMessage) before
// being flattened to text, the same shape an A2A client would see them in.
func buildUserMessage(node *workflow.WorkflowAgent, wf *workflow.Workflow, mainTaskPrompt string, vars *taskctx.Variables) string {
	var sb strings.Builder
	if node != nil {
		if msg := node.ToA2AMessage(); msg != nil {
			sb.WriteString(workflow.A2AMessageText(msg))
			sb.WriteString("\n\n")
		}
		for _, dep := range node.DependencyMessages(wf) {
			sb.WriteString(workflow.A2AMessageText(dep))
			sb.WriteString("\n\n")
		}
	}
	if mainTaskPrompt != "" {
		sb.WriteString(mainTaskPrompt)
		sb.WriteString("\n\n")
	}
	if snap := vars.Snapshot(); len(snap) > 0 {
		sb.WriteString("Task variables:\n")
		for k, v := range snap {
			fmt.Fprintf(&sb, "- %s: %v\n", k, v)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
