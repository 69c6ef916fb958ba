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


package openai

import "strings"

// repairJSON fixes the formatting mistakes small models make most often:
// object keys without quotes (or missing only the opening quote) and
// trailing commas before a closing brace or bracket.
func repairJSON(s string) string {
	return dropTrailingCommas(quoteBareKeys(s))
}

func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString, escaped, expectKey := false, false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		if expectKey && isLetter(rune(ch)) {
			end := i
			for end < len(s) && isKeyByte(s[end]) {
				end++
			}
			next := end
			for next < len(s) && isSpace(s[next]) {
				next++
			}
			switch {
			case next < len(s) && s[next] == ':':
				// {type: ...}
				b.WriteByte('"')
				b.WriteString(s[i:end])
				b.WriteByte('"')
				i = end - 1
				expectKey = false
				continue
			case end+1 < len(s) && s[end] == '"' && s[end+1] == ':':
				// {type": ...}
				b.WriteByte('"')
				b.WriteString(s[i : end+1])
				i = end
				expectKey = false
				continue
			}
		}

		b.WriteByte(ch)
		switch {
		case ch == '"':
			inString = true
			expectKey = false
		case ch == '{' || ch == ',':
			expectKey = true
		case !isSpace(ch):
			expectKey = false
		}
	}
	return b.String()
}

func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}
		if ch == ',' {
			next := i + 1
			for next < len(s) && isSpace(s[next]) {
				next++
			}
			if next < len(s) && (s[next] == '}' || s[next] == ']') {
				continue
			}
		}
		if ch == '"' {
			inString = true
		}
		b.WriteByte(ch)
	}
	return b.String()
}
