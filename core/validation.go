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
	"fmt"
	"regexp"
	"strings"
)

var (
	fieldNamePattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	sourcePattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	parameterPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	identityPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+\-@]+$`)
	profileNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)
)

// ValidateFieldName checks that name is a plain or dotted identifier.
// arg names the argument in the returned error.
func ValidateFieldName(arg, name string) error {
	if !fieldNamePattern.MatchString(name) {
		return NewValidationError(arg, name, ErrInvalidFieldName)
	}
	return nil
}

// ValidateSource checks a collection identifier.
func ValidateSource(source Source) error {
	if !sourcePattern.MatchString(string(source)) {
		return NewValidationError("source", string(source), ErrInvalidSource)
	}
	return nil
}

// ValidateSources checks that at least one source is given and that all of
// them are well formed.
func ValidateSources(sources []Source) error {
	if len(sources) == 0 {
		return NewValidationError("sources", nil, ErrSourcesRequired)
	}
	for _, s := range sources {
		if err := ValidateSource(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateParameter checks a query parameter name. A single leading '@' is
// accepted and ignored.
func ValidateParameter(arg, param string) error {
	if !parameterPattern.MatchString(strings.TrimPrefix(param, "@")) {
		return NewValidationError(arg, param, ErrInvalidFieldName)
	}
	return nil
}

// ValidateIdentity checks a requester identity before it is embedded in a
// permission predicate.
//
// Validation rules:
//   - must not be blank
//   - must only contain characters found in e-mail style identities, so it
//     can never close a literal, open a group or introduce an operator
func ValidateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return NewValidationError("identity", nil, ErrBlankIdentity)
	}
	if !identityPattern.MatchString(identity) {
		return NewValidationError("identity", identity, ErrInvalidIdentity)
	}
	return nil
}

// ValidateNonNegative rejects negative counts.
func ValidateNonNegative(arg string, n int) error {
	if n < 0 {
		return NewValidationError(arg, n, ErrNegativeValue)
	}
	return nil
}

// ValidateProfileName checks a ranking profile name.
func ValidateProfileName(profile string) error {
	if !profileNamePattern.MatchString(profile) {
		return NewValidationError("profile", profile, fmt.Errorf("%w: malformed ranking profile", ErrInvalidValue))
	}
	return nil
}

// ValidateDirection checks an ordering direction.
func ValidateDirection(dir Direction) error {
	if dir != Ascending && dir != Descending {
		return NewValidationError("direction", string(dir), ErrInvalidDirection)
	}
	return nil
}
