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


package yql

import (
	"fmt"
	"strings"

	"github.com/poiesic/yqlguard/core"
)

// ValidateSyntax checks the structure of a compiled query: required
// keywords, balanced parentheses and braces outside string literals, and
// terminated literals. It does not parse expressions.
func ValidateSyntax(query string) error {
	if !strings.HasPrefix(query, "select ") {
		return fmt.Errorf("%w: missing select keyword", core.ErrSyntax)
	}
	if !strings.Contains(query, " from sources ") {
		return fmt.Errorf("%w: missing from sources clause", core.ErrSyntax)
	}

	var stack []int
	quoteStart := -1
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if quoteStart >= 0 {
			switch ch {
			case '\\':
				i++
			case '\'':
				quoteStart = -1
			}
			continue
		}
		switch ch {
		case '\'':
			quoteStart = i
		case '(', '{':
			stack = append(stack, i)
		case ')', '}':
			if len(stack) == 0 {
				return fmt.Errorf("%w: unmatched %q at offset %d", core.ErrSyntax, ch, i)
			}
			open := query[stack[len(stack)-1]]
			if (ch == ')') != (open == '(') {
				return fmt.Errorf("%w: %q at offset %d closes %q at offset %d", core.ErrSyntax, ch, i, open, stack[len(stack)-1])
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quoteStart >= 0 {
		return fmt.Errorf("%w: unterminated string literal at offset %d", core.ErrSyntax, quoteStart)
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed %q at offset %d", core.ErrSyntax, query[stack[len(stack)-1]], stack[len(stack)-1])
	}
	return nil
}
