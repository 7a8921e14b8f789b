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

import (
	"encoding/json"
	"unicode"
)

// EstimateTokens implements a character-class token estimator:
// CJK/Hangul characters cost 2 units each; a contiguous run of
// ASCII letters costs ceil(len/4) (minimum 1 for any nonempty run, but a
// run of length <= 4 costs exactly 1); a contiguous run of digits costs
// ceil(len/3); whitespace costs 0; everything else costs 1 per rune. The
// estimate need not match any provider's real tokenizer.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}

	total := 0
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case isCJKOrHangul(r):
			total += 2
			i++
		case isASCIILetter(r):
			start := i
			for i < len(runes) && isASCIILetter(runes[i]) {
				i++
			}
			total += ceilDiv(i-start, 4)
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			total += ceilDiv(i-start, 3)
		case unicode.IsSpace(r):
			i++
		default:
			total++
			i++
		}
	}
	return total
}

func isCJKOrHangul(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana/Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	case r >= 0x1100 && r <= 0x11FF: // Hangul Jamo
		return true
	default:
		return false
	}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// EstimateMessages sums EstimateTokens over every text-bearing part of
// every message, plus the serialized length of any tool schemas passed
// in.
func EstimateMessages(messages []Message, toolSchemas ...any) int {
	total := 0
	for _, m := range messages {
		for _, p := range m.Parts {
			switch p.Kind {
			case PartText:
				total += EstimateTokens(p.Text)
			case PartReasoning:
				total += EstimateTokens(p.Reasoning)
			case PartToolCall:
				if b, err := json.Marshal(p.Input); err == nil {
					total += EstimateTokens(string(b))
				}
			case PartToolResult:
				total += EstimateTokens(toolResultText(p))
			}
		}
	}
	for _, schema := range toolSchemas {
		if b, err := json.Marshal(schema); err == nil {
			total += EstimateTokens(string(b))
		}
	}
	return total
}

func toolResultText(p Part) string {
	switch p.Output {
	case OutputJSON, OutputErrorJSON:
		if b, err := json.Marshal(p.OutputJSON); err == nil {
			return string(b)
		}
		return ""
	case OutputContent:
		var out string
		for _, sub := range p.OutputParts {
			out += sub.Text
		}
		return out
	default:
		return p.OutputText
	}
}
