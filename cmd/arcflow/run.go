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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcflow-run/arcflow/pkg/agentloop"
	"github.com/arcflow-run/arcflow/pkg/callback"
	"github.com/arcflow-run/arcflow/pkg/chain"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/orchestrator"
	"github.com/arcflow-run/arcflow/pkg/planner"
)

func runCmd() *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "run <task-prompt>",
		Short: "Generate and execute a task against the echo smoke-test stack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			o := newSmokeOrchestrator()

			ctx := context.Background()
			task, err := o.Generate(ctx, prompt, taskID, nil)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			result, err := o.Execute(ctx, task.ID)
			if err != nil {
				return fmt.Errorf("execute: %w", err)
			}

			fmt.Printf("task: %s\n", result.TaskID)
			if result.StopReason != "" {
				fmt.Printf("stopped: %s\n", result.StopReason)
			}
			fmt.Println(result.Text)

			if task.Chain != nil {
				if err := writeChainView(task.ID, task.Chain.View()); err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not persist chain for inspect: %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task-id", "", "task id to use (default: generated)")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <task-id>",
		Short: "Print the chain recorded by a previous `run` for the given task id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			view, err := readChainView(taskID)
			if err != nil {
				return fmt.Errorf("inspect %q: %w", taskID, err)
			}
			out, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// newSmokeOrchestrator wires the planner stub, echo provider, and a
// single "echo" agent into a ready-to-run Orchestrator.
func newSmokeOrchestrator() *orchestrator.Orchestrator {
	cfg := config.Default()
	sink := callback.Noop

	chain.SetTracerProvider(chain.NewTracerProvider())

	p := planner.NewPlanner(planStubProvider{}, planner.XMLParser{}, sink)
	loop := agentloop.NewLoop(llm.NewTurnEngine(echoProvider{}), sink)

	agents := map[string]*agentloop.Agent{
		"echo": {
			Name:        "echo",
			Description: "echoes the task prompt back",
		},
	}

	return orchestrator.New(p, loop, agents, sink, cfg)
}

// chainCacheDir returns (creating if needed) the directory `run` persists
// chain views into so a later `inspect` invocation, in a fresh process,
// can read them back.
func chainCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "arcflow", "tasks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeChainView(taskID string, view chain.ChainView) error {
	dir, err := chainCacheDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, taskID+".json"), data, 0o644)
}

func readChainView(taskID string) (chain.ChainView, error) {
	var view chain.ChainView
	dir, err := chainCacheDir()
	if err != nil {
		return view, err
	}
	data, err := os.ReadFile(filepath.Join(dir, taskID+".json"))
	if err != nil {
		return view, err
	}
	err = json.Unmarshal(data, &view)
	return view, err
}
