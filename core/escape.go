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


package core

import "strings"

var escaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Escape makes s safe to embed between single quotes: backslashes are escaped
// first, then single quotes.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. A trailing lone backslash is kept as is.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Quote escapes s and wraps it in single quotes.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}
