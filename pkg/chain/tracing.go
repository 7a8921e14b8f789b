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

package chain

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/arcflow-run/arcflow/pkg/chain")

// NewTracerProvider builds an SDK TracerProvider that samples every span,
// grounded on hector's pkg/observability.InitGlobalTracer. Exporter/batcher
// wiring is left to the caller via opts (sdktrace.WithBatcher, etc.): this
// package only needs a real span source, not an export pipeline, which
// would be a telemetry sink and so out of scope per spec.md §1.
func NewTracerProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	all := append([]sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}, opts...)
	return sdktrace.NewTracerProvider(all...)
}

// SetTracerProvider installs tp as the source of every span this package
// opens, mirroring hector's otel.SetTracerProvider/GetTracer(name) split
// between global installation and package-scoped lookup.
func SetTracerProvider(tp trace.TracerProvider) {
	tracer = tp.Tracer("github.com/arcflow-run/arcflow/pkg/chain")
}

// TracedPush behaves like Chain.Push but additionally opens an OTel span
// covering the agent's run, ended when the caller invokes the returned
// function: span-per-operation instrumentation applied to chain nodes
// rather than tool dispatch.
func TracedPush(ctx context.Context, c *Chain, ac *AgentChain) (context.Context, func()) {
	spanCtx, span := tracer.Start(ctx, "agent.run",
		trace.WithAttributes(attribute.String("agent.name", ac.AgentName)))
	c.Push(ac)
	return spanCtx, func() { span.End() }
}

// TracedToolPush behaves like AgentChain.Push but additionally opens an
// OTel span, ended when the caller invokes the returned function; the span
// covers only what the caller runs between the two.
func TracedToolPush(ctx context.Context, ac *AgentChain, tc *ToolChain) (context.Context, func()) {
	spanCtx, span := tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(
			attribute.String("tool.name", tc.Name),
			attribute.String("tool.call_id", tc.CallID),
		))
	ac.Push(tc)
	return spanCtx, func() { span.End() }
}
