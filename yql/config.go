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
	"time"

	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
)

// Attribute names used by the convenience filters.
const (
	AppField    = "app"
	EntityField = "entity"
	DocIDField  = "docId"
)

// Order is one term of the order-by clause.
type Order struct {
	Field     string
	Direction core.Direction
}

// Config is a snapshot of everything that determines a compiled query.
// Compile is a pure function of it.
type Config struct {
	Identity           string
	RequirePermissions bool

	// Fields selects attributes; empty selects all.
	Fields  []string
	Sources []core.Source

	// Where holds top-level conditions, combined with OR semantics.
	Where []condition.Condition
	// Filters are conjuncts ANDed with the where conditions, such as time ranges.
	Filters []condition.Condition

	Apps       []string
	Entities   []string
	ExcludeIDs []string
	IncludeIDs []string
	// IDField names the attribute matched by ExcludeIDs and IncludeIDs.
	// Defaults to DocIDField.
	IDField string

	Limit   *int
	Offset  *int
	Timeout time.Duration
	GroupBy string
	OrderBy []Order

	// ValidateSyntax runs ValidateSyntax over the compiled query.
	ValidateSyntax bool
}

// Clone returns a deep copy of the slices and pointers in c. Conditions are
// immutable and shared.
func (c Config) Clone() Config {
	out := c
	out.Fields = slices.Clone(c.Fields)
	out.Sources = slices.Clone(c.Sources)
	out.Where = slices.Clone(c.Where)
	out.Filters = slices.Clone(c.Filters)
	out.Apps = slices.Clone(c.Apps)
	out.Entities = slices.Clone(c.Entities)
	out.ExcludeIDs = slices.Clone(c.ExcludeIDs)
	out.IncludeIDs = slices.Clone(c.IncludeIDs)
	out.OrderBy = slices.Clone(c.OrderBy)
	if c.Limit != nil {
		n := *c.Limit
		out.Limit = &n
	}
	if c.Offset != nil {
		n := *c.Offset
		out.Offset = &n
	}
	return out
}

func (c Config) idField() string {
	if c.IDField == "" {
		return DocIDField
	}
	return c.IDField
}
