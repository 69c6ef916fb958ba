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
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
)

// Compile validates cfg and renders the query. It has no side effects and
// returns the same string for equal configurations.
func Compile(cfg Config) (string, error) {
	if err := core.ValidateSources(cfg.Sources); err != nil {
		return "", err
	}
	if cfg.RequirePermissions {
		if err := core.ValidateIdentity(cfg.Identity); err != nil {
			return "", err
		}
	}
	for _, f := range cfg.Fields {
		if err := core.ValidateFieldName("fields", f); err != nil {
			return "", err
		}
	}
	if cfg.Limit != nil {
		if err := core.ValidateNonNegative("limit", *cfg.Limit); err != nil {
			return "", err
		}
	}
	if cfg.Offset != nil {
		if err := core.ValidateNonNegative("offset", *cfg.Offset); err != nil {
			return "", err
		}
	}

	where, err := WhereTree(cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("select ")
	if len(cfg.Fields) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(cfg.Fields, ", "))
	}
	b.WriteString(" from sources ")
	for i, s := range cfg.Sources {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(s))
	}
	if where != nil {
		b.WriteString(" where (")
		b.WriteString(condition.Render(where, cfg.Identity))
		b.WriteString(")")
	}
	if cfg.Limit != nil {
		b.WriteString(" limit " + strconv.Itoa(*cfg.Limit))
	}
	if cfg.Offset != nil {
		b.WriteString(" offset " + strconv.Itoa(*cfg.Offset))
	}
	if cfg.Timeout > 0 {
		b.WriteString(" timeout " + strconv.FormatInt(cfg.Timeout.Milliseconds(), 10))
	}
	if cfg.GroupBy != "" {
		b.WriteString(" | " + cfg.GroupBy)
	}
	for i, o := range cfg.OrderBy {
		if i == 0 {
			b.WriteString(" order by ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.Field + " " + string(o.Direction))
	}

	query := b.String()
	if cfg.ValidateSyntax {
		if err := ValidateSyntax(query); err != nil {
			return "", err
		}
	}
	return query, nil
}

// WhereTree returns the where expression of cfg after permission injection,
// or nil when the query has no where clause.
//
// The root conjunction carries the access check unless one of its parts
// already does: a non-bypassed And or Or resolves to the same policy, so a
// second conjunct on the root would only repeat it.
func WhereTree(cfg Config) (condition.Condition, error) {
	parts, err := whereParts(cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.RequirePermissions {
		switch len(parts) {
		case 0:
			return nil, nil
		case 1:
			return condition.ApplyPermissions(parts[0], condition.AccessNone), nil
		}
		root, err := condition.AndWithoutPermissions(parts...)
		if err != nil {
			return nil, err
		}
		return condition.ApplyPermissions(root, condition.AccessNone), nil
	}

	policy, err := condition.NewPolicy(cfg.Identity, cfg.Sources)
	if err != nil {
		return nil, err
	}
	switch {
	case len(parts) == 0:
		return policy.Condition(), nil
	case len(parts) == 1 && isChecked(parts[0]):
		return policy.Apply(parts[0]), nil
	}

	newRoot := condition.AndPolicyChecked
	if slices.ContainsFunc(parts, isChecked) {
		newRoot = condition.AndWithoutPermissions
	}
	root, err := newRoot(parts...)
	if err != nil {
		return nil, err
	}
	return policy.Apply(root), nil
}

// isChecked reports whether c is a composite that carries its own access check.
func isChecked(c condition.Condition) bool {
	switch n := c.(type) {
	case *condition.And:
		return !n.Bypassed()
	case *condition.Or:
		return !n.Bypassed()
	}
	return false
}

// whereParts collects the top-level conjuncts in a fixed order: the where
// conditions, app and entity filters, added filters, then exclusion and
// inclusion sets.
func whereParts(cfg Config) ([]condition.Condition, error) {
	var parts []condition.Condition

	switch len(cfg.Where) {
	case 0:
	case 1:
		if !condition.IsVacuous(cfg.Where[0]) {
			parts = append(parts, cfg.Where[0])
		}
	default:
		or, err := condition.NewOr(cfg.Where...)
		if err != nil {
			return nil, err
		}
		parts = append(parts, or)
	}

	for _, filter := range []struct {
		field  string
		values []string
	}{
		{AppField, cfg.Apps},
		{EntityField, cfg.Entities},
	} {
		c, err := anyOf(filter.field, filter.values)
		if err != nil {
			return nil, err
		}
		if c != nil {
			parts = append(parts, c)
		}
	}

	for _, c := range cfg.Filters {
		if !condition.IsVacuous(c) {
			parts = append(parts, c)
		}
	}

	exclude, err := condition.NewExclude(cfg.idField(), cfg.ExcludeIDs)
	if err != nil {
		return nil, err
	}
	if !exclude.IsEmpty() {
		parts = append(parts, exclude)
	}
	include, err := condition.NewInclude(cfg.idField(), cfg.IncludeIDs)
	if err != nil {
		return nil, err
	}
	if !include.IsEmpty() {
		parts = append(parts, include)
	}
	return parts, nil
}

// anyOf matches field against any of values. The disjunction is bypassed;
// the enclosing root carries the access check.
func anyOf(field string, values []string) (condition.Condition, error) {
	if len(values) == 0 {
		return nil, nil
	}
	fields := make([]condition.Condition, 0, len(values))
	for _, v := range values {
		f, err := condition.Contains(field, v)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if len(fields) == 1 {
		return fields[0], nil
	}
	or, err := condition.OrWithoutPermissions(fields...)
	if err != nil {
		return nil, err
	}
	return or, nil
}
