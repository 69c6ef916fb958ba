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


// Package condition implements the search filter expression tree.
//
// A Condition is a closed sum type: leaf predicates (Field, Fuzzy, FreeText,
// VectorNearest, TimeRange, Include, Exclude, SameElement, Raw, Access) and
// composites (And, Or, Not, Paren). Only this package can add kinds, and every
// traversal (rendering, permission injection, evaluation) switches over the
// complete set.
//
// # Access control
//
// And and Or nodes carry a Check that decides whether an access-control
// predicate is conjoined when the node is rendered. The defaults differ on
// purpose:
//
//   - NewAnd does not add a check. Conjunction only narrows a result set.
//   - NewOr defers to the active Policy. Any satisfied branch admits a
//     document, so the union must be filtered.
//
// The explicit forms (AndWithoutPermissions, OrOwnerChecked, ...) make the
// choice visible at the call site.
//
// ApplyPermissions rewrites a tree bottom-up so that every non-bypassed
// composite carries exactly one access-control conjunct for the given
// AccessCheck. An Or renders as
//
//	(c1 or c2 or ...) and <access>
//
// which is equivalent to distributing the conjunct into each branch but keeps
// the text linear in the number of branches.
//
// # Rendering
//
// String renders a condition with the identity placeholder @identity in
// access predicates. Render substitutes a concrete identity. Values are
// escaped with core.Escape; Raw fragments are emitted verbatim.
package condition
