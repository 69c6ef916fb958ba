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
	"math"
	"strconv"
	"time"

	"github.com/poiesic/yqlguard/core"
)

// Operator is a field comparison operator.
type Operator string

const (
	OpContains      Operator = "contains"
	OpEqual         Operator = "="
	OpGreater       Operator = ">"
	OpGreaterEqual  Operator = ">="
	OpLess          Operator = "<"
	OpLessEqual     Operator = "<="
	OpFuzzyContains Operator = "fuzzyContains"
	OpMatches       Operator = "matches"
)

func (op Operator) textual() bool {
	return op == OpContains || op == OpFuzzyContains || op == OpMatches
}

func (op Operator) valid() bool {
	switch op {
	case OpContains, OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpFuzzyContains, OpMatches:
		return true
	}
	return false
}

// Field compares a document attribute with a value.
type Field struct {
	name    string
	op      Operator
	value   any
	literal string
}

// NewField creates a field predicate.
//
// Textual operators (contains, fuzzyContains, matches) require a string
// value. Ordering operators require a number or a time.Time, which is
// rendered as Unix milliseconds. Equality accepts strings, numbers, booleans
// and times.
func NewField(name string, op Operator, value any) (*Field, error) {
	if err := core.ValidateFieldName("name", name); err != nil {
		return nil, err
	}
	if !op.valid() {
		return nil, core.NewValidationError("operator", string(op), core.ErrInvalidOperator)
	}
	if value == nil {
		return nil, core.NewValidationError("value", nil, core.ErrNilValue)
	}

	literal, kind, err := formatValue(value)
	if err != nil {
		return nil, err
	}
	switch {
	case op.textual() && kind != kindString:
		return nil, core.NewValidationError("value", value, fmt.Errorf("%w: %s requires a string", core.ErrInvalidValue, op))
	case op != OpEqual && !op.textual() && kind != kindNumber:
		return nil, core.NewValidationError("value", value, fmt.Errorf("%w: %s requires a number or time", core.ErrInvalidValue, op))
	}

	return &Field{name: name, op: op, value: value, literal: literal}, nil
}

// Contains is shorthand for NewField(name, OpContains, value).
func Contains(name, value string) (*Field, error) {
	return NewField(name, OpContains, value)
}

// Name returns the attribute name.
func (f *Field) Name() string { return f.name }

// Operator returns the comparison operator.
func (f *Field) Operator() Operator { return f.op }

// Value returns the comparison value as given to NewField.
func (f *Field) Value() any { return f.value }

func (f *Field) String() string { return renderString(f) }

func (f *Field) render(r *renderer) {
	switch f.op {
	case OpFuzzyContains:
		r.write(f.name + " contains fuzzy(" + f.literal + ")")
	default:
		r.write(f.name + " " + string(f.op) + " " + f.literal)
	}
}

// Fuzzy matches an attribute against a value within an edit distance.
type Fuzzy struct {
	name            string
	value           string
	maxEditDistance int
	prefixLength    int
}

// DefaultMaxEditDistance is the edit distance used by OpFuzzyContains.
const DefaultMaxEditDistance = 2

// NewFuzzy creates a fuzzy match. prefixLength characters at the start of the
// value must match exactly.
func NewFuzzy(name, value string, maxEditDistance, prefixLength int) (*Fuzzy, error) {
	if err := core.ValidateFieldName("name", name); err != nil {
		return nil, err
	}
	if err := core.ValidateNonNegative("maxEditDistance", maxEditDistance); err != nil {
		return nil, err
	}
	if err := core.ValidateNonNegative("prefixLength", prefixLength); err != nil {
		return nil, err
	}
	return &Fuzzy{name: name, value: value, maxEditDistance: maxEditDistance, prefixLength: prefixLength}, nil
}

func (f *Fuzzy) String() string { return renderString(f) }

func (f *Fuzzy) render(r *renderer) {
	r.write(fmt.Sprintf("%s contains ({maxEditDistance:%d,prefixLength:%d}fuzzy(%s))",
		f.name, f.maxEditDistance, f.prefixLength, core.Quote(f.value)))
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
)

func formatValue(value any) (string, valueKind, error) {
	switch v := value.(type) {
	case string:
		return core.Quote(v), kindString, nil
	case bool:
		return strconv.FormatBool(v), kindBool, nil
	case int:
		return strconv.FormatInt(int64(v), 10), kindNumber, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), kindNumber, nil
	case int64:
		return strconv.FormatInt(v, 10), kindNumber, nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), kindNumber, nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), kindNumber, nil
	case uint64:
		return strconv.FormatUint(v, 10), kindNumber, nil
	case float32:
		if !finite(float64(v)) {
			return "", 0, core.NewValidationError("value", value, fmt.Errorf("%w: non-finite number", core.ErrInvalidValue))
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32), kindNumber, nil
	case float64:
		if !finite(v) {
			return "", 0, core.NewValidationError("value", value, fmt.Errorf("%w: non-finite number", core.ErrInvalidValue))
		}
		return strconv.FormatFloat(v, 'g', -1, 64), kindNumber, nil
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10), kindNumber, nil
	}
	return "", 0, core.NewValidationError("value", value, fmt.Errorf("%w: unsupported type %T", core.ErrInvalidValue, value))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
