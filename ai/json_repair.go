// Copyright 2025 Poiesic Systems
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


package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// DecodeJSON extracts the JSON object from a model response and unmarshals it into v.
// Markdown code fences and surrounding prose are ignored. If the object does not
// parse as-is, common model formatting mistakes are repaired and parsing is retried.
func DecodeJSON(text string, v any) error {
	body := extractObject(StripCodeFences(text))
	if body == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(body), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(repairJSON(body)), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

// StripCodeFences removes a surrounding markdown code fence, including its
// language tag, from a model response.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// repairJSON fixes formatting mistakes small models commonly make:
// trailing commas before a closing bracket, bare object keys, and keys
// missing their opening quote (`, type": 1`).
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)
	inString := false

	i := 0
	for i < len(in) {
		ch := in[i]
		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(in) {
				out = append(out, in[i+1])
				i += 2
				continue
			}
			if ch == '"' {
				inString = false
			}
			i++
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)
			i++
		case ',':
			j := skipSpace(in, i+1)
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				i = j
				continue
			}
			out = append(out, ch)
			i = copyKey(in, i+1, &out)
		case '{':
			out = append(out, ch)
			i = copyKey(in, i+1, &out)
		default:
			out = append(out, ch)
			i++
		}
	}
	return string(out)
}

// copyKey copies leading whitespace at i and quotes a bare key if one follows.
// It returns the index at which scanning should resume.
func copyKey(in []rune, i int, out *[]rune) int {
	for i < len(in) && unicode.IsSpace(in[i]) {
		*out = append(*out, in[i])
		i++
	}
	start := i
	for i < len(in) && isKeyRune(in[i]) {
		i++
	}
	if i == start {
		return start
	}
	key := in[start:i]

	// Missing opening quote: the closing quote is already present.
	if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
		*out = append(*out, '"')
		*out = append(*out, key...)
		*out = append(*out, '"')
		return i + 1
	}
	if j := skipSpace(in, i); j < len(in) && in[j] == ':' {
		*out = append(*out, '"')
		*out = append(*out, key...)
		*out = append(*out, '"')
		return i
	}
	*out = append(*out, key...)
	return i
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && unicode.IsSpace(in[i]) {
		i++
	}
	return i
}

func isKeyRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
