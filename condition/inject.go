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

import "fmt"

// ApplyPermissions rewrites c so that every And and Or not marked bypassed
// carries exactly one access-control predicate for access. The rewrite is
// bottom-up: children are resolved before their parent, so nested
// disjunctions receive their own conjunct instead of relying on an ancestor.
// Time ranges are grouped in parentheses. The input tree is not modified.
//
// One AccessCheck is applied to the whole tree; a query has a single active
// source set.
func ApplyPermissions(c Condition, access AccessCheck) Condition {
	switch n := c.(type) {
	case *And:
		children := applyAll(n.children, access)
		return &And{composite: n.resolve(children, access)}
	case *Or:
		children := applyAll(n.children, access)
		return &Or{composite: n.resolve(children, access)}
	case *Not:
		return &Not{child: ApplyPermissions(n.child, access)}
	case *Paren:
		if _, ok := n.child.(*TimeRange); ok {
			return n
		}
		return &Paren{child: ApplyPermissions(n.child, access)}
	case *TimeRange:
		return &Paren{child: n}
	case *Field, *Fuzzy, *FreeText, *VectorNearest, *Include, *Exclude, *SameElement, *Raw, *Access:
		return n
	case nil:
		return nil
	}
	panic(fmt.Sprintf("condition: ApplyPermissions does not handle %T", c))
}

func applyAll(children []Condition, access AccessCheck) []Condition {
	out := make([]Condition, len(children))
	for i, c := range children {
		out[i] = ApplyPermissions(c, access)
	}
	return out
}
