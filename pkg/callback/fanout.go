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

package callback

import (
	"context"
	"log/slog"
	"sync"
)

// Fanout composes multiple Sinks into one, isolating each subscriber's
// panics and errors so a faulty sink cannot interrupt emission to the
// others.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewFanout creates a Fanout over the given initial sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: append([]Sink{}, sinks...)}
}

// Subscribe adds a sink to the fanout.
func (f *Fanout) Subscribe(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Emit delivers ev to every subscribed sink. A panicking or erroring sink
// is logged and skipped; Emit itself never returns an error.
func (f *Fanout) Emit(ctx context.Context, ev Event) error {
	f.mu.RLock()
	sinks := append([]Sink{}, f.sinks...)
	f.mu.RUnlock()

	for _, s := range sinks {
		f.emitOne(ctx, s, ev)
	}
	return nil
}

func (f *Fanout) emitOne(ctx context.Context, s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("callback sink panicked", "type", ev.Type, "recover", r)
		}
	}()
	if err := s.Emit(ctx, ev); err != nil {
		slog.Warn("callback sink returned error", "type", ev.Type, "error", err)
	}
}
