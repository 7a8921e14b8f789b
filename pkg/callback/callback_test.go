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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type erroringSink struct{}

func (erroringSink) Emit(context.Context, Event) error { return errors.New("boom") }

type panickingSink struct{}

func (panickingSink) Emit(context.Context, Event) error { panic("kaboom") }

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := NewFanout(a, b)

	err := f.Emit(context.Background(), Event{Type: EventAgentStart})
	assert.NoError(t, err)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestFanout_IsolatesErroringSink(t *testing.T) {
	good := &recordingSink{}
	f := NewFanout(erroringSink{}, good)

	err := f.Emit(context.Background(), Event{Type: EventError})
	assert.NoError(t, err)
	assert.Equal(t, 1, good.count())
}

func TestFanout_IsolatesPanickingSink(t *testing.T) {
	good := &recordingSink{}
	f := NewFanout(panickingSink{}, good)

	assert.NotPanics(t, func() {
		f.Emit(context.Background(), Event{Type: EventToolCall})
	})
	assert.Equal(t, 1, good.count())
}

func TestFanout_SubscribeAddsSink(t *testing.T) {
	f := NewFanout()
	a := &recordingSink{}
	f.Subscribe(a)

	f.Emit(context.Background(), Event{Type: EventAgentFinish})
	assert.Equal(t, 1, a.count())
}

func TestNoopSink_NeverErrors(t *testing.T) {
	assert.NoError(t, Noop.Emit(context.Background(), Event{Type: EventTaskStatus}))
}
