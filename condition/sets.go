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
	"github.com/poiesic/yqlguard/core"
)

// Include matches documents whose field holds one of the values.
// An Include without values is vacuous: it reports IsEmpty and is dropped
// from composites and queries instead of being serialized.
type Include struct {
	field  string
	values []string
}

// NewInclude creates an inclusion set. Duplicate values are dropped.
func NewInclude(field string, values []string) (*Include, error) {
	if err := core.ValidateFieldName("field", field); err != nil {
		return nil, err
	}
	return &Include{field: field, values: uniqueValues(values)}, nil
}

// IsEmpty reports whether the set has no values.
func (i *Include) IsEmpty() bool { return len(i.values) == 0 }

// Values returns a copy of the values.
func (i *Include) Values() []string { return append([]string(nil), i.values...) }

func (i *Include) String() string { return renderString(i) }

func (i *Include) render(r *renderer) {
	writeMembership(r, i.field, i.values)
}

// Exclude drops documents whose id field holds one of the ids.
// Like Include it is vacuous when empty.
type Exclude struct {
	field string
	ids   []string
}

// NewExclude creates an exclusion set over idField.
func NewExclude(idField string, ids []string) (*Exclude, error) {
	if err := core.ValidateFieldName("idField", idField); err != nil {
		return nil, err
	}
	return &Exclude{field: idField, ids: uniqueValues(ids)}, nil
}

// IsEmpty reports whether the set has no ids.
func (e *Exclude) IsEmpty() bool { return len(e.ids) == 0 }

// IDs returns a copy of the ids.
func (e *Exclude) IDs() []string { return append([]string(nil), e.ids...) }

func (e *Exclude) String() string { return renderString(e) }

func (e *Exclude) render(r *renderer) {
	if e.IsEmpty() {
		return
	}
	r.write("!")
	if len(e.ids) == 1 {
		r.write("(")
		writeMembership(r, e.field, e.ids)
		r.write(")")
		return
	}
	writeMembership(r, e.field, e.ids)
}

// writeMembership writes a single contains, or a parenthesized disjunction.
func writeMembership(r *renderer, field string, values []string) {
	switch len(values) {
	case 0:
		return
	case 1:
		r.write(field + " contains " + core.Quote(values[0]))
		return
	}
	r.write("(")
	for i, v := range values {
		if i > 0 {
			r.write(" or ")
		}
		r.write(field + " contains " + core.Quote(v))
	}
	r.write(")")
}

func uniqueValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
