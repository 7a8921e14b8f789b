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

// Command arcflow is a CLI smoke-test harness for the orchestrator: it
// wires a deterministic planner stub and an echoing agent provider so
// `run` and `inspect` can be exercised without a real model endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arcflow",
	Short: "arcflow task runner",
	Long:  "arcflow drives the planner/orchestrator/agent-loop pipeline against a task prompt.",
}

func init() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(inspectCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
