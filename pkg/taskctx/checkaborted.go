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

import (
	"context"
	"time"
)

// CheckAborted implements the cooperative cancellation/pause check.
// Order of checks:
//
//  1. If the task controller is aborted, return ErrAborted.
//  2. While paused and noCheckPause is false: sleep one quantum; if the
//     pause state is PausedAbortStep, abort every registered per-step
//     controller; re-check (1).
func (t *Task) CheckAborted(noCheckPause bool) error {
	for {
		if err := context.Cause(t.Context()); err != nil {
			return ErrAborted
		}
		if noCheckPause || t.PauseState() == Running {
			return nil
		}

		timer := time.NewTimer(pauseQuantum)
		select {
		case <-timer.C:
		case <-t.Context().Done():
			timer.Stop()
			return ErrAborted
		}

		if t.PauseState() == PausedAbortStep {
			t.pause.abortAllSteps(ErrPaused)
		}
	}
}

// WithStep derives a child context from parent (normally Task.Context())
// and registers its cancel function as a per-step controller for the
// duration of one suspension point. The returned cleanup function must be
// called (typically via defer) once the suspension ends; it unregisters
// the controller and releases its resources.
func (t *Task) WithStep(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	id := t.pause.registerStep(cancel)
	return ctx, func() {
		t.pause.unregisterStep(id)
		cancel(nil)
	}
}
