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

import "errors"

// Sentinel errors surfaced by the cancellation/pause protocol and by task
// bookkeeping. Callers should match against these with errors.Is.
var (
	// ErrAborted is returned by CheckAborted when the task's controller
	// has been cancelled, either via AbortTask or context cancellation.
	ErrAborted = errors.New("taskctx: task aborted")

	// ErrUnknownTask is returned when a task id has no registered Task.
	ErrUnknownTask = errors.New("taskctx: unknown task id")

	// ErrWorkflowEmpty indicates a workflow with zero agent nodes.
	ErrWorkflowEmpty = errors.New("taskctx: workflow has no agents")
)
