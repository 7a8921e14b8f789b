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

package planner

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow-run/arcflow/pkg/chain"
	"github.com/arcflow-run/arcflow/pkg/config"
	"github.com/arcflow-run/arcflow/pkg/llm"
	"github.com/arcflow-run/arcflow/pkg/taskctx"
)

type scriptedProvider struct {
	deltas []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[llm.Event, error] {
	return func(yield func(llm.Event, error) bool) {
		for _, d := range p.deltas {
			if !yield(llm.Event{Type: llm.EventTextDelta, Delta: d}, nil) {
				return
			}
		}
		yield(llm.Event{Type: llm.EventFinish, FinishReason: llm.FinishStop}, nil)
	}
}

const planXML = `<workflow name="research-and-write">` +
	`<agent name="researcher">gather facts</agent>` +
	`<agent name="writer" dependsOn="researcher">write it up</agent>` +
	`</workflow>`

func TestPlanner_Plan_ParsesAgentsAndDependencies(t *testing.T) {
	p := NewPlanner(&scriptedProvider{deltas: []string{planXML}}, XMLParser{}, nil)
	task := taskctx.New("t1", config.Default())

	w, err := p.Plan(context.Background(), task, "research and write a report")
	require.NoError(t, err)
	assert.Equal(t, "research-and-write", w.Name)
	require.Len(t, w.Agents, 2)
	assert.Equal(t, "researcher", w.Agents[0].Name)
	assert.Equal(t, "writer", w.Agents[1].Name)
	assert.Equal(t, []string{"researcher"}, w.Agents[1].DependsOn)
	assert.False(t, w.Modified)
}

func TestPlanner_Plan_ToleratesChunkedDeltas(t *testing.T) {
	chunks := []string{
		`<workflow name="x">`,
		`<agent name="a">do a</agent>`,
		`</workflow>`,
	}
	p := NewPlanner(&scriptedProvider{deltas: chunks}, XMLParser{}, nil)
	task := taskctx.New("t2", config.Default())

	w, err := p.Plan(context.Background(), task, "do a thing")
	require.NoError(t, err)
	assert.Equal(t, "x", w.Name)
	require.Len(t, w.Agents, 1)
}

func TestPlanner_Replan_ReusesChainedRequest(t *testing.T) {
	chainTask := taskctx.New("t3", config.Default())
	chainTask.Chain = chain.New(chainTask.ID)

	p := NewPlanner(&scriptedProvider{deltas: []string{planXML}}, XMLParser{}, nil)
	_, err := p.Plan(context.Background(), chainTask, "research and write a report")
	require.NoError(t, err)

	replanXML := `<workflow name="research-and-write-v2">` +
		`<agent name="researcher">gather more facts</agent>` +
		`</workflow>`
	p2 := NewPlanner(&scriptedProvider{deltas: []string{replanXML}}, XMLParser{}, nil)
	w, err := p2.Replan(context.Background(), chainTask, "focus on recent sources")
	require.NoError(t, err)
	assert.Equal(t, "research-and-write-v2", w.Name)
	assert.True(t, w.Modified)
}

func TestPlanner_Plan_StrictParseErrorOnMalformedXML(t *testing.T) {
	p := NewPlanner(&scriptedProvider{deltas: []string{`<workflow name="x"><agent name="a">oops`}}, XMLParser{}, nil)
	task := taskctx.New("t4", config.Default())

	_, err := p.Plan(context.Background(), task, "do a thing")
	assert.Error(t, err)
}
