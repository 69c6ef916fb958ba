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

// SameElement matches a map attribute holding key mapped to value in the
// same entry.
type SameElement struct {
	field string
	key   string
	value string
}

// NewSameElement creates a same-element predicate over the map attribute field.
func NewSameElement(field, key, value string) (*SameElement, error) {
	if err := core.ValidateFieldName("field", field); err != nil {
		return nil, err
	}
	return &SameElement{field: field, key: key, value: value}, nil
}

func (s *SameElement) String() string { return renderString(s) }

func (s *SameElement) render(r *renderer) {
	r.write(s.field + " contains sameElement(key contains " + core.Quote(s.key) +
		", value contains " + core.Quote(s.value) + ")")
}

// Raw is a hand-written fragment emitted verbatim. Nothing about it is
// validated; it is grouped in parentheses when it appears inside a composite.
type Raw struct {
	text string
}

// NewRaw wraps text.
func NewRaw(text string) *Raw {
	return &Raw{text: text}
}

func (w *Raw) String() string { return renderString(w) }

func (w *Raw) render(r *renderer) {
	r.write(w.text)
}

// Not negates its child.
type Not struct {
	child Condition
}

// NewNot negates c.
func NewNot(c Condition) (*Not, error) {
	if err := checkOperand(c); err != nil {
		return nil, err
	}
	return &Not{child: c}, nil
}

// Child returns the negated condition.
func (n *Not) Child() Condition { return n.child }

func (n *Not) String() string { return renderString(n) }

func (n *Not) render(r *renderer) {
	r.write("!(")
	n.child.render(r)
	r.write(")")
}

// Paren groups its child. It never adds an access-control predicate.
type Paren struct {
	child Condition
}

// NewParen groups c.
func NewParen(c Condition) (*Paren, error) {
	if err := checkOperand(c); err != nil {
		return nil, err
	}
	return &Paren{child: c}, nil
}

// Child returns the grouped condition.
func (p *Paren) Child() Condition { return p.child }

func (p *Paren) String() string { return renderString(p) }

func (p *Paren) render(r *renderer) {
	r.write("(")
	p.child.render(r)
	r.write(")")
}

func checkOperand(c Condition) error {
	if c == nil {
		return core.NewValidationError("child", nil, core.ErrNilValue)
	}
	if IsVacuous(c) {
		return core.NewValidationError("child", c.String(), core.ErrVacuousCondition)
	}
	return nil
}
