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
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/arcflow-run/arcflow/pkg/workflow"
)

// XMLParser is the default Parser, reading the `<workflow>`/`<agent>` DSL
// planningSystemPrompt asks the model to produce. No third-party XML or
// DSL library pulls its weight here, so this is built on the standard
// library's encoding/xml.
type XMLParser struct{}

type xmlWorkflow struct {
	XMLName xml.Name   `xml:"workflow"`
	Name    string     `xml:"name,attr"`
	Agents  []xmlAgent `xml:"agent"`
}

type xmlAgent struct {
	Name      string `xml:"name,attr"`
	DependsOn string `xml:"dependsOn,attr"`
	Task      string `xml:",chardata"`
}

// ParseStrict requires the full accumulated text to contain one complete,
// well-formed <workflow> element.
func (XMLParser) ParseStrict(text string) (*ParseResult, error) {
	body, ok := extractElement(text, "workflow")
	if !ok {
		return nil, fmt.Errorf("planner: no complete <workflow> element found")
	}
	var doc xmlWorkflow
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("planner: parse workflow xml: %w", err)
	}
	return toParseResult(doc), nil
}

// ParseTolerant accepts a still-streaming prefix: it looks for a
// complete <workflow>...</workflow> span within the text so far and
// parses just that, ignoring any trailing partial tag. It returns false
// until the closing tag has arrived.
func (XMLParser) ParseTolerant(text string) (*ParseResult, bool) {
	body, ok := extractElement(text, "workflow")
	if !ok {
		return nil, false
	}
	var doc xmlWorkflow
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, false
	}
	return toParseResult(doc), true
}

// extractElement returns the substring spanning the first complete
// <tag>...</tag> pair in s, tolerating any leading prose the model
// emits before the XML begins.
func extractElement(s, tag string) (string, bool) {
	open := "<" + tag
	closeTag := "</" + tag + ">"
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.Index(s[start:], closeTag)
	if end < 0 {
		return "", false
	}
	return s[start : start+end+len(closeTag)], true
}

func toParseResult(doc xmlWorkflow) *ParseResult {
	agents := make([]*workflow.WorkflowAgent, 0, len(doc.Agents))
	for i, a := range doc.Agents {
		var deps []string
		if strings.TrimSpace(a.DependsOn) != "" {
			for _, d := range strings.Split(a.DependsOn, ",") {
				if d = strings.TrimSpace(d); d != "" {
					deps = append(deps, d)
				}
			}
		}
		agents = append(agents, &workflow.WorkflowAgent{
			ID:        fmt.Sprintf("n%d", i),
			Name:      a.Name,
			Task:      strings.TrimSpace(a.Task),
			DependsOn: deps,
			XML:       a.Task,
		})
	}
	return &ParseResult{Name: doc.Name, Agents: agents}
}
