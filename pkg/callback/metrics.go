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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsSink records counts of callback events as OTel metrics: every
// event counted by type, plus error and tool-call events counted by agent
// name.
type MetricsSink struct {
	events   metric.Int64Counter
	errors   metric.Int64Counter
	toolRuns metric.Int64Counter
}

// NewMetricsSink builds a MetricsSink whose counters are created on the
// given meter.
func NewMetricsSink(meter metric.Meter) (*MetricsSink, error) {
	events, err := meter.Int64Counter("arcflow.callback.events_total")
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("arcflow.callback.errors_total")
	if err != nil {
		return nil, err
	}
	toolRuns, err := meter.Int64Counter("arcflow.callback.tool_calls_total")
	if err != nil {
		return nil, err
	}
	return &MetricsSink{events: events, errors: errs, toolRuns: toolRuns}, nil
}

// Emit implements Sink.
func (m *MetricsSink) Emit(ctx context.Context, ev Event) error {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", ev.Type)))
	switch ev.Type {
	case EventError:
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", ev.AgentName)))
	case EventToolCall:
		m.toolRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", ev.AgentName)))
	}
	return nil
}
