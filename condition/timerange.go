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
	"strconv"
	"time"

	"github.com/poiesic/yqlguard/core"
)

// TimeBounds is an optional lower and upper bound. Zero times are unset.
type TimeBounds struct {
	From time.Time
	To   time.Time
}

// TimeRange restricts a document's time span. The lower bound applies to
// fromField and the upper bound to toField; both fields may be the same.
// Times are compared as Unix milliseconds.
type TimeRange struct {
	fromField string
	toField   string
	bounds    TimeBounds
}

// NewTimeRange creates a time range predicate. At least one bound is required.
func NewTimeRange(fromField, toField string, bounds TimeBounds) (*TimeRange, error) {
	if err := core.ValidateFieldName("fromField", fromField); err != nil {
		return nil, err
	}
	if err := core.ValidateFieldName("toField", toField); err != nil {
		return nil, err
	}
	if bounds.From.IsZero() && bounds.To.IsZero() {
		return nil, core.NewValidationError("bounds", nil, core.ErrEmptyBounds)
	}
	return &TimeRange{fromField: fromField, toField: toField, bounds: bounds}, nil
}

// Bounds returns the configured bounds.
func (t *TimeRange) Bounds() TimeBounds { return t.bounds }

func (t *TimeRange) both() bool {
	return !t.bounds.From.IsZero() && !t.bounds.To.IsZero()
}

func (t *TimeRange) String() string { return renderString(t) }

func (t *TimeRange) render(r *renderer) {
	if !t.bounds.From.IsZero() {
		r.write(t.fromField + " >= " + strconv.FormatInt(t.bounds.From.UnixMilli(), 10))
	}
	if t.both() {
		r.write(" and ")
	}
	if !t.bounds.To.IsZero() {
		r.write(t.toField + " <= " + strconv.FormatInt(t.bounds.To.UnixMilli(), 10))
	}
}
