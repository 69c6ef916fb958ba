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

import (
	"errors"
	"fmt"
)

// Validation errors. Every error returned by a constructor or by the query
// builder wraps one of these, usually inside a *ValidationError.
var (
	// ErrValidation is the root of all validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFieldName indicates a field name that is empty or does not
	// match the identifier pattern.
	ErrInvalidFieldName = errors.New("invalid field name")

	// ErrInvalidSource indicates a malformed collection identifier.
	ErrInvalidSource = errors.New("invalid source")

	// ErrSourcesRequired indicates a query without any source collection.
	ErrSourcesRequired = errors.New("sources required")

	// ErrNegativeValue indicates a negative limit, offset, timeout or hit count.
	ErrNegativeValue = errors.New("value cannot be negative")

	// ErrBlankIdentity indicates a permission check requested for an empty identity.
	ErrBlankIdentity = errors.New("identity cannot be blank")

	// ErrInvalidIdentity indicates an identity containing characters that could
	// alter the structure of a query.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrNilValue indicates a missing value for a field predicate.
	ErrNilValue = errors.New("value cannot be nil")

	// ErrInvalidValue indicates a value of the wrong type for its operator.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidOperator indicates an unknown comparison operator.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrEmptyComposite indicates an AND/OR built without children.
	ErrEmptyComposite = errors.New("composite condition requires at least one child")

	// ErrEmptyBounds indicates a time range without a lower or upper bound.
	ErrEmptyBounds = errors.New("time range requires at least one bound")

	// ErrVacuousCondition indicates an empty inclusion or exclusion set used
	// where a real condition is required.
	ErrVacuousCondition = errors.New("condition is vacuous")

	// ErrEmptyFragment indicates a blank structural fragment such as a grouping.
	ErrEmptyFragment = errors.New("fragment cannot be empty")

	// ErrInvalidDirection indicates an ordering direction other than asc/desc.
	ErrInvalidDirection = errors.New("invalid order direction")

	// ErrSyntax indicates a compiled query that failed the structural check.
	ErrSyntax = errors.New("query syntax error")
)

// ValidationError names the argument that failed validation.
type ValidationError struct {
	Arg   string
	Value any
	Err   error
}

// NewValidationError builds a ValidationError for arg.
func NewValidationError(arg string, value any, err error) *ValidationError {
	return &ValidationError{Arg: arg, Value: value, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Arg, e.Err)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Arg, e.Err, e.Value)
}

// Unwrap exposes both the specific sentinel and ErrValidation.
func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, ErrValidation}
}
