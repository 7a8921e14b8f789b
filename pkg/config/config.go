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

// Package config provides the runtime-tunable configuration for the
// orchestration engine: global defaults for retry, compression, and
// parallelism, all of which can be overridden per task via context
// variables (see pkg/taskctx).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the global defaults recognized by the orchestrator, agent
// loop, and memory manager. AgentParallel and ParallelToolCalls have a
// matching context variable key (see pkg/taskctx) that overrides them on a
// per-task basis; the other fields have no per-task override.
type Config struct {
	// AgentParallel enables concurrent execution of sibling agents within
	// a parallel workflow group.
	AgentParallel bool `yaml:"agent_parallel" mapstructure:"agent_parallel"`

	// ParallelToolCalls enables concurrent tool dispatch within a single
	// assistant step, subject to per-tool SupportParallelCalls.
	ParallelToolCalls bool `yaml:"parallel_tool_calls" mapstructure:"parallel_tool_calls"`

	// CompressThreshold is the message-count threshold that forces a
	// snapshot compression regardless of estimated token count.
	CompressThreshold int `yaml:"compress_threshold" mapstructure:"compress_threshold"`

	// CompressTokensThreshold is the estimated-token threshold, only
	// consulted once the buffer holds at least 10 messages.
	CompressTokensThreshold int `yaml:"compress_tokens_threshold" mapstructure:"compress_tokens_threshold"`

	// MaxRetryNum bounds stream-failure and length-finish retries for a
	// single assistant step.
	MaxRetryNum int `yaml:"max_retry_num" mapstructure:"max_retry_num"`

	// MaxReactNum bounds ReAct loop iterations per agent run.
	MaxReactNum int `yaml:"max_react_num" mapstructure:"max_react_num"`

	// LargeTextLength is the truncation ceiling for an individual text
	// payload during pruning and compression.
	LargeTextLength int `yaml:"large_text_length" mapstructure:"large_text_length"`

	// MaxDialogueImgFileNum caps image and non-image file parts kept in
	// the working buffer during large-content pruning.
	MaxDialogueImgFileNum int `yaml:"max_dialogue_img_file_num" mapstructure:"max_dialogue_img_file_num"`

	// ExpertMode enables the result-check and todo-manager passes in the
	// agent loop.
	ExpertMode bool `yaml:"expert_mode" mapstructure:"expert_mode"`

	// ExpertModeTodoLoopNum is the iteration period for todo-list
	// maintenance calls under expert mode.
	ExpertModeTodoLoopNum int `yaml:"expert_mode_todo_loop_num" mapstructure:"expert_mode_todo_loop_num"`

	// ToolResultMultimodal controls whether media tool results are
	// emitted inline versus via a synthesized user turn.
	ToolResultMultimodal bool `yaml:"tool_result_multimodal" mapstructure:"tool_result_multimodal"`
}

// Default returns the built-in defaults used when a task does not
// override a given key.
func Default() *Config {
	return &Config{
		AgentParallel:           false,
		ParallelToolCalls:       false,
		CompressThreshold:       40,
		CompressTokensThreshold: 8000,
		MaxRetryNum:             3,
		MaxReactNum:             100,
		LargeTextLength:         5000,
		MaxDialogueImgFileNum:   2,
		ExpertMode:              false,
		ExpertModeTodoLoopNum:   5,
		ToolResultMultimodal:    false,
	}
}

// Load reads a YAML configuration file, applying Default() first so that
// partially specified files still yield a complete Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
