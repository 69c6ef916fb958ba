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


package condition

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/poiesic/yqlguard/core"
)

// Matches evaluates c against doc the way the search platform would filter
// it, with identity standing in for the requester in access predicates.
//
// Attribute semantics:
//   - contains matches a string equal to the value or holding it as a
//     whitespace-separated word (case-insensitive); arrays match when any
//     element does
//   - ordering operators compare numbers; missing attributes never match
//   - FreeText and VectorNearest match when doc.Recalled holds their Key
//   - Exclude falls back to doc.ID when the attribute is absent
//
// Raw fragments cannot be evaluated and yield ErrNotEvaluable.
func Matches(c Condition, doc *core.Document, identity string) (bool, error) {
	switch n := c.(type) {
	case *And:
		for _, child := range n.children {
			ok, err := Matches(child, doc, identity)
			if err != nil || !ok {
				return false, err
			}
		}
		return matchAccess(n.Access(), doc, identity)
	case *Or:
		matched := false
		for _, child := range n.children {
			ok, err := Matches(child, doc, identity)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
		return matchAccess(n.Access(), doc, identity)
	case *Not:
		ok, err := Matches(n.child, doc, identity)
		return !ok && err == nil, err
	case *Paren:
		return Matches(n.child, doc, identity)
	case *Field:
		return matchField(n, doc)
	case *Fuzzy:
		return matchFuzzy(n, doc), nil
	case *FreeText:
		return doc.Recalled[n.Key()], nil
	case *VectorNearest:
		return doc.Recalled[n.Key()], nil
	case *TimeRange:
		return matchTimeRange(n, doc), nil
	case *Include:
		if n.IsEmpty() {
			return true, nil
		}
		value, ok := attribute(doc, n.field)
		return anyValue(value, ok, func(v any) bool {
			s, ok := v.(string)
			return ok && slices.Contains(n.values, s)
		}), nil
	case *Exclude:
		if n.IsEmpty() {
			return true, nil
		}
		value, ok := attribute(doc, n.field)
		if !ok {
			value, ok = doc.ID, true
		}
		return !anyValue(value, ok, func(v any) bool {
			s, ok := v.(string)
			return ok && slices.Contains(n.ids, s)
		}), nil
	case *SameElement:
		return matchSameElement(n, doc), nil
	case *Access:
		id := n.identity
		if id == "" {
			id = identity
		}
		return matchAccess(n.check, doc, id)
	case *Raw:
		return false, fmt.Errorf("%w: %s", ErrNotEvaluable, n.text)
	}
	return false, fmt.Errorf("%w: %T", ErrNotEvaluable, c)
}

func matchAccess(check AccessCheck, doc *core.Document, identity string) (bool, error) {
	if check == AccessNone {
		return true, nil
	}
	if strings.TrimSpace(identity) == "" {
		return false, core.NewValidationError("identity", nil, core.ErrBlankIdentity)
	}
	holds := func(field string) bool {
		value, ok := attribute(doc, field)
		return anyValue(value, ok, func(v any) bool { return v == identity })
	}
	switch check {
	case AccessOwner:
		return holds(core.OwnerField), nil
	case AccessPermissions:
		return holds(core.PermissionsField), nil
	case AccessOwnerOrPermissions:
		return holds(core.OwnerField) || holds(core.PermissionsField), nil
	}
	return false, nil
}

func matchField(f *Field, doc *core.Document) (bool, error) {
	value, ok := attribute(doc, f.name)
	if !ok {
		return false, nil
	}
	switch f.op {
	case OpContains:
		want := f.value.(string)
		return anyValue(value, true, func(v any) bool { return containsWord(v, want) }), nil
	case OpFuzzyContains:
		want := strings.ToLower(f.value.(string))
		return anyValue(value, true, func(v any) bool {
			s, ok := v.(string)
			return ok && fuzzyWord(strings.ToLower(s), want, DefaultMaxEditDistance, 0)
		}), nil
	case OpMatches:
		re, err := regexp.Compile(f.value.(string))
		if err != nil {
			return false, core.NewValidationError("value", f.value, err)
		}
		return anyValue(value, true, func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}), nil
	case OpEqual:
		return anyValue(value, true, func(v any) bool { return equalValues(v, f.value) }), nil
	}

	want, ok := toFloat(f.value)
	if !ok {
		return false, nil
	}
	return anyValue(value, true, func(v any) bool {
		got, ok := toFloat(v)
		if !ok {
			return false
		}
		switch f.op {
		case OpGreater:
			return got > want
		case OpGreaterEqual:
			return got >= want
		case OpLess:
			return got < want
		case OpLessEqual:
			return got <= want
		}
		return false
	}), nil
}

func matchFuzzy(f *Fuzzy, doc *core.Document) bool {
	value, ok := attribute(doc, f.name)
	want := strings.ToLower(f.value)
	return anyValue(value, ok, func(v any) bool {
		s, ok := v.(string)
		return ok && fuzzyWord(strings.ToLower(s), want, f.maxEditDistance, f.prefixLength)
	})
}

func matchTimeRange(t *TimeRange, doc *core.Document) bool {
	if !t.bounds.From.IsZero() {
		v, ok := attribute(doc, t.fromField)
		got, isNum := toFloat(v)
		if !ok || !isNum || got < float64(t.bounds.From.UnixMilli()) {
			return false
		}
	}
	if !t.bounds.To.IsZero() {
		v, ok := attribute(doc, t.toField)
		got, isNum := toFloat(v)
		if !ok || !isNum || got > float64(t.bounds.To.UnixMilli()) {
			return false
		}
	}
	return true
}

func matchSameElement(s *SameElement, doc *core.Document) bool {
	value, ok := attribute(doc, s.field)
	if !ok {
		return false
	}
	switch m := value.(type) {
	case map[string]string:
		return m[s.key] == s.value
	case map[string]any:
		return m[s.key] == s.value
	case []any:
		for _, entry := range m {
			if kv, ok := entry.(map[string]any); ok && kv["key"] == s.key && kv["value"] == s.value {
				return true
			}
		}
	}
	return false
}

// attribute resolves a plain or dotted attribute name.
func attribute(doc *core.Document, name string) (any, bool) {
	if doc == nil || doc.Fields == nil {
		return nil, false
	}
	if v, ok := doc.Fields[name]; ok {
		return v, true
	}
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		return nil, false
	}
	var current any = doc.Fields
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// anyValue applies pred to a scalar, or to each element of an array value.
func anyValue(value any, present bool, pred func(any) bool) bool {
	if !present {
		return false
	}
	switch vs := value.(type) {
	case []string:
		for _, v := range vs {
			if pred(v) {
				return true
			}
		}
		return false
	case []any:
		for _, v := range vs {
			if pred(v) {
				return true
			}
		}
		return false
	}
	return pred(value)
}

func containsWord(v any, want string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if s == want {
		return true
	}
	want = strings.ToLower(want)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if word == want {
			return true
		}
	}
	return false
}

func fuzzyWord(s, want string, maxDistance, prefixLength int) bool {
	for _, word := range append(strings.Fields(s), s) {
		if prefixLength > 0 {
			if len(word) < prefixLength || len(want) < prefixLength || word[:prefixLength] != want[:prefixLength] {
				continue
			}
		}
		if editDistance(word, want) <= maxDistance {
			return true
		}
	}
	return false
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func equalValues(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		wf, ok := toFloat(want)
		return ok && gf == wf
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if t, ok := v.(interface{ UnixMilli() int64 }); ok {
		return float64(t.UnixMilli()), true
	}
	return 0, false
}
