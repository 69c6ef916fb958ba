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


// Package yql compiles condition trees into access-controlled query strings.
//
// A Builder accumulates the clauses of one search request and produces an
// immutable Config snapshot. Compile turns a Config into the final query:
//
//	select <fields> from sources <s1, s2> [where (<expr>)] [limit n] [offset n]
//	[timeout ms] [| <grouping>] [order by <field> <dir>, ...]
//
// When permissions are required (the default), the where expression is
// rewritten by condition.ApplyPermissions using the access check implied by
// the sources. The root conjunction carries the requester's access-control
// predicate unless one of its top-level parts is a checked And or Or, which
// already does. An empty where expression compiles to the predicate alone.
//
// Example:
//
//	query, err := yql.New("a@b.com").
//		From(core.SourceFile, core.SourceMail).
//		WhereOr(freeText, nearest).
//		FilterByApp("gmail").
//		Limit(20).
//		Build()
package yql
