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
	"strings"
	"time"

	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
)

// Builder accumulates the clauses of a single query. Methods return the
// builder for chaining; the first invalid argument is remembered and returned
// by Build. A Builder is not safe for concurrent use.
type Builder struct {
	cfg Config
	err error
}

// New returns a builder for identity with permission checks required and
// syntax validation enabled.
func New(identity string) *Builder {
	return &Builder{cfg: Config{
		Identity:           identity,
		RequirePermissions: true,
		ValidateSyntax:     true,
	}}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// RequirePermissions toggles access-control injection.
func (b *Builder) RequirePermissions(require bool) *Builder {
	b.cfg.RequirePermissions = require
	return b
}

// WithoutPermissions disables access-control injection. Only system-internal
// queries that are not scoped to a user should use it.
func (b *Builder) WithoutPermissions() *Builder {
	return b.RequirePermissions(false)
}

// ValidateSyntax toggles the structural check run by Build.
func (b *Builder) ValidateSyntax(validate bool) *Builder {
	b.cfg.ValidateSyntax = validate
	return b
}

// Select sets the returned attributes. "*" selects all of them.
func (b *Builder) Select(fields ...string) *Builder {
	if len(fields) == 0 {
		return b.fail(core.NewValidationError("fields", nil, ErrNoFields))
	}
	if len(fields) == 1 && fields[0] == "*" {
		b.cfg.Fields = nil
		return b
	}
	for _, f := range fields {
		if err := core.ValidateFieldName("fields", f); err != nil {
			return b.fail(err)
		}
	}
	b.cfg.Fields = append([]string(nil), fields...)
	return b
}

// From sets the active sources, replacing any set before.
func (b *Builder) From(sources ...core.Source) *Builder {
	if err := core.ValidateSources(sources); err != nil {
		return b.fail(err)
	}
	b.cfg.Sources = append([]core.Source(nil), sources...)
	return b
}

// Where adds a top-level condition. Empty inclusion and exclusion sets are
// ignored.
func (b *Builder) Where(c condition.Condition) *Builder {
	if c == nil {
		return b.fail(core.NewValidationError("where", nil, core.ErrNilValue))
	}
	if condition.IsVacuous(c) {
		return b
	}
	b.cfg.Where = append(b.cfg.Where, c)
	return b
}

// WhereAnd adds the conjunction of cs as a top-level condition. Empty
// inclusion and exclusion sets are dropped first; if nothing is left the
// call is a no-op.
func (b *Builder) WhereAnd(cs ...condition.Condition) *Builder {
	cs, ok := dropVacuous(cs)
	if !ok {
		return b
	}
	and, err := condition.NewAnd(cs...)
	if err != nil {
		return b.fail(err)
	}
	return b.Where(and)
}

// WhereOr adds the policy-checked disjunction of cs as a top-level condition.
// Vacuous members are dropped as in WhereAnd.
func (b *Builder) WhereOr(cs ...condition.Condition) *Builder {
	cs, ok := dropVacuous(cs)
	if !ok {
		return b
	}
	or, err := condition.NewOr(cs...)
	if err != nil {
		return b.fail(err)
	}
	return b.Where(or)
}

// Filter adds c as a conjunct of the where clause. Unlike repeated Where
// calls, filters never widen the result set.
func (b *Builder) Filter(c condition.Condition) *Builder {
	if c == nil {
		return b.fail(core.NewValidationError("filter", nil, core.ErrNilValue))
	}
	if condition.IsVacuous(c) {
		return b
	}
	b.cfg.Filters = append(b.cfg.Filters, c)
	return b
}

// FilterByApp restricts results to documents from any of apps.
func (b *Builder) FilterByApp(apps ...string) *Builder {
	b.cfg.Apps = appendNonBlank(b.cfg.Apps, apps)
	return b
}

// FilterByEntity restricts results to documents mentioning any of entities.
func (b *Builder) FilterByEntity(entities ...string) *Builder {
	b.cfg.Entities = appendNonBlank(b.cfg.Entities, entities)
	return b
}

// ExcludeDocIDs drops the given documents. An empty list is a no-op.
func (b *Builder) ExcludeDocIDs(ids ...string) *Builder {
	b.cfg.ExcludeIDs = append(b.cfg.ExcludeIDs, ids...)
	return b
}

// IncludeDocIDs restricts results to the given documents. An empty list is
// a no-op.
func (b *Builder) IncludeDocIDs(ids ...string) *Builder {
	b.cfg.IncludeIDs = append(b.cfg.IncludeIDs, ids...)
	return b
}

// IDField changes the attribute matched by ExcludeDocIDs and IncludeDocIDs.
func (b *Builder) IDField(field string) *Builder {
	if err := core.ValidateFieldName("idField", field); err != nil {
		return b.fail(err)
	}
	b.cfg.IDField = field
	return b
}

// Limit caps the number of hits.
func (b *Builder) Limit(n int) *Builder {
	if err := core.ValidateNonNegative("limit", n); err != nil {
		return b.fail(err)
	}
	b.cfg.Limit = &n
	return b
}

// Offset skips the first n hits.
func (b *Builder) Offset(n int) *Builder {
	if err := core.ValidateNonNegative("offset", n); err != nil {
		return b.fail(err)
	}
	b.cfg.Offset = &n
	return b
}

// Timeout sets the server-side time budget, rendered in milliseconds.
func (b *Builder) Timeout(d time.Duration) *Builder {
	if d < 0 {
		return b.fail(core.NewValidationError("timeout", d.String(), core.ErrNegativeValue))
	}
	b.cfg.Timeout = d
	return b
}

// GroupBy sets the grouping expression appended after "|".
func (b *Builder) GroupBy(fragment string) *Builder {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return b.fail(core.NewValidationError("groupBy", nil, core.ErrEmptyFragment))
	}
	b.cfg.GroupBy = fragment
	return b
}

// OrderBy appends an ordering term.
func (b *Builder) OrderBy(field string, dir core.Direction) *Builder {
	if err := core.ValidateFieldName("orderBy", field); err != nil {
		return b.fail(err)
	}
	if err := core.ValidateDirection(dir); err != nil {
		return b.fail(err)
	}
	b.cfg.OrderBy = append(b.cfg.OrderBy, Order{Field: field, Direction: dir})
	return b
}

// Err returns the first configuration error, if any.
func (b *Builder) Err() error { return b.err }

// Config returns a snapshot of the accumulated configuration.
func (b *Builder) Config() Config { return b.cfg.Clone() }

// Build compiles the accumulated configuration.
func (b *Builder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return Compile(b.cfg)
}

// BuildProfile compiles the query and pairs it with a ranking profile.
func (b *Builder) BuildProfile(profile string) (core.ScopedQuery, error) {
	if err := core.ValidateProfileName(profile); err != nil {
		return core.ScopedQuery{}, err
	}
	query, err := b.Build()
	if err != nil {
		return core.ScopedQuery{}, err
	}
	return core.ScopedQuery{Profile: profile, YQL: query}, nil
}

func appendNonBlank(dst, values []string) []string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			dst = append(dst, v)
		}
	}
	return dst
}

// dropVacuous removes empty sets from cs. It reports false when cs held only
// vacuous conditions. Nil entries are kept so the composite rejects them.
func dropVacuous(cs []condition.Condition) ([]condition.Condition, bool) {
	kept := make([]condition.Condition, 0, len(cs))
	for _, c := range cs {
		if c != nil && condition.IsVacuous(c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept, len(kept) > 0 || len(cs) == 0
}
