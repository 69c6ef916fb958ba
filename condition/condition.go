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
	"strings"
)

// IdentityPlaceholder stands in for the requester identity in access
// predicates rendered without one.
const IdentityPlaceholder = "@identity"

// Condition is a node in a search filter expression tree.
type Condition interface {
	fmt.Stringer

	// render writes the condition. Being unexported it also closes the set
	// of implementations to this package.
	render(r *renderer)
}

type renderer struct {
	identity string
	b        strings.Builder
}

func (r *renderer) write(s string) {
	r.b.WriteString(s)
}

func (r *renderer) identityText() string {
	if r.identity == "" {
		return IdentityPlaceholder
	}
	return r.identity
}

// Render serializes c, substituting identity for the placeholder in
// access-control predicates. An empty identity keeps the placeholder.
func Render(c Condition, identity string) string {
	if c == nil {
		return ""
	}
	r := &renderer{identity: identity}
	c.render(r)
	return r.b.String()
}

func renderString(c Condition) string {
	return Render(c, "")
}

// Must panics if err is non-nil. It is meant for conditions assembled from
// constants.
func Must[T Condition](c T, err error) T {
	if err != nil {
		panic(err)
	}
	return c
}

// Walk visits c and its descendants depth-first. Returning false from fn
// skips the children of the visited node. Access predicates implied by a
// composite's Check are not visited.
func Walk(c Condition, fn func(Condition) bool) {
	if c == nil || !fn(c) {
		return
	}
	switch n := c.(type) {
	case *And:
		for _, child := range n.children {
			Walk(child, fn)
		}
	case *Or:
		for _, child := range n.children {
			Walk(child, fn)
		}
	case *Not:
		Walk(n.child, fn)
	case *Paren:
		Walk(n.child, fn)
	}
}

// IsVacuous reports conditions that must be omitted rather than serialized:
// empty inclusion and exclusion sets.
func IsVacuous(c Condition) bool {
	switch n := c.(type) {
	case *Include:
		return n.IsEmpty()
	case *Exclude:
		return n.IsEmpty()
	}
	return false
}
