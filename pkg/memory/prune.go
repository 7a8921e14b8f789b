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

package memory

// HandleLargeContextMessages is called before every turn to cap the
// number of large media/text payloads kept in full in the buffer.
//
// Walking newest to oldest, it keeps an image counter and a non-image
// file counter across user messages, replacing every occurrence of each
// after the maxDialogueImgFileNum-th with a placeholder text part. Walking the same
// direction over tool messages, it keeps a per-tool-name counter of
// oversize text outputs, keeping the first occurrence (newest) full length
// and truncating subsequent ones.
func HandleLargeContextMessages(messages []Message, maxDialogueImgFileNum, largeTextLength int) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)

	imageNum := 0
	fileNum := 0
	toolTextSeen := make(map[string]int)

	for i := len(out) - 1; i >= 0; i-- {
		m := out[i]
		switch m.Role {
		case RoleUser:
			out[i] = pruneUserFileParts(m, &imageNum, &fileNum, maxDialogueImgFileNum)
		case RoleTool:
			out[i] = pruneToolTextParts(m, toolTextSeen, largeTextLength)
		}
	}
	return out
}

func pruneUserFileParts(m Message, imageNum, fileNum *int, limit int) Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	for i, p := range parts {
		if p.Kind != PartFile {
			continue
		}
		if p.IsImage() {
			*imageNum++
			if *imageNum > limit {
				parts[i] = TextPart("[image]")
			}
		} else {
			*fileNum++
			if *fileNum > limit {
				parts[i] = TextPart("[file]")
			}
		}
	}
	m.Parts = parts
	return m
}

func pruneToolTextParts(m Message, seen map[string]int, largeTextLength int) Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	for i, p := range parts {
		if p.Kind != PartToolResult {
			continue
		}
		parts[i] = pruneToolResultPart(p, seen, largeTextLength)
	}
	m.Parts = parts
	return m
}

func pruneToolResultPart(p Part, seen map[string]int, largeTextLength int) Part {
	// Image parts inside a tool result are counted per tool name, and every
	// image after the first (newest) one for that tool becomes "[image]".
	// Non-image file parts are never replaced, and neither the user-message
	// counters nor maxDialogueImgFileNum apply here.
	if p.Output == OutputContent {
		parts := make([]Part, len(p.OutputParts))
		copy(parts, p.OutputParts)
		for i, sub := range parts {
			if sub.Kind != PartFile {
				continue
			}
			key := p.ToolName + ":media"
			seen[key]++
			if seen[key] > 0 && sub.IsImage() && seen[key] > 1 {
				parts[i] = TextPart("[image]")
			}
		}
		p.OutputParts = parts
	}

	text := p.OutputText
	if text == "" || len(text) <= largeTextLength {
		return p
	}

	seen[p.ToolName]++
	if seen[p.ToolName] == 1 {
		// First (newest, since we walk newest-to-oldest) occurrence for
		// this tool name is kept full length.
		return p
	}
	p.OutputText = truncateHead(text, largeTextLength)
	return p
}

// truncateHead returns the first n characters of s, extended to a safe
// rune boundary, followed by an ellipsis marker.
func truncateHead(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	head := string(runes[:n])
	return head + "..."
}
