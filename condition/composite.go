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
	"slices"

	"github.com/poiesic/yqlguard/core"
)

// Check controls the access-control predicate attached to a composite.
type Check int

const (
	// CheckBypassed never adds an access-control predicate. Use it for
	// system-internal lookups that are not scoped to a user.
	CheckBypassed Check = iota
	// CheckOwner adds an owner predicate.
	CheckOwner
	// CheckPermissions adds a permissions predicate.
	CheckPermissions
	// CheckPolicy defers to the policy of the active sources; the predicate
	// is resolved by ApplyPermissions. Unresolved nodes render a permissions
	// predicate.
	CheckPolicy
)

func (c Check) access() AccessCheck {
	switch c {
	case CheckOwner:
		return AccessOwner
	case CheckPermissions, CheckPolicy:
		return AccessPermissions
	}
	return AccessNone
}

// composite holds the shared state of And and Or. Nodes are immutable; every
// combining operation returns a new node.
type composite struct {
	children []Condition
	check    Check
	resolved bool
	access   AccessCheck
}

func newComposite(children []Condition, check Check) (composite, error) {
	if len(children) == 0 {
		return composite{}, core.NewValidationError("children", nil, core.ErrEmptyComposite)
	}
	kept := make([]Condition, 0, len(children))
	for _, c := range children {
		if c == nil {
			return composite{}, core.NewValidationError("children", nil, core.ErrNilValue)
		}
		if IsVacuous(c) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return composite{}, core.NewValidationError("children", len(children), core.ErrVacuousCondition)
	}
	return composite{children: kept, check: check}, nil
}

// Children returns a copy of the child conditions.
func (c *composite) Children() []Condition { return slices.Clone(c.children) }

// Check returns how the node is access-checked.
func (c *composite) Check() Check { return c.check }

// Bypassed reports whether the node is exempt from access-control injection.
func (c *composite) Bypassed() bool { return c.check == CheckBypassed }

// Access returns the access-control predicate the node renders with.
func (c *composite) Access() AccessCheck {
	if c.check == CheckBypassed {
		return AccessNone
	}
	if c.resolved {
		return c.access
	}
	return c.check.access()
}

func (c *composite) resolve(children []Condition, access AccessCheck) composite {
	if c.check == CheckBypassed {
		return composite{children: children, check: CheckBypassed}
	}
	return composite{children: children, check: CheckPolicy, resolved: true, access: access}
}

func (c *composite) renderAccess(r *renderer) {
	if access := c.Access(); access != AccessNone {
		r.write(" and ")
		accessCondition(access).render(r)
	}
}

// And is a conjunction.
type And struct {
	composite
}

// NewAnd creates a conjunction without an access-control predicate.
// Narrowing a result further cannot admit more documents.
func NewAnd(children ...Condition) (*And, error) {
	return AndWithoutPermissions(children...)
}

// AndWithoutPermissions creates a conjunction exempt from access-control injection.
func AndWithoutPermissions(children ...Condition) (*And, error) {
	return newAnd(children, CheckBypassed)
}

// AndOwnerChecked creates a conjunction that requires the requester to be the owner.
func AndOwnerChecked(children ...Condition) (*And, error) {
	return newAnd(children, CheckOwner)
}

// AndPermissionsChecked creates a conjunction that requires the requester in permissions.
func AndPermissionsChecked(children ...Condition) (*And, error) {
	return newAnd(children, CheckPermissions)
}

// AndPolicyChecked creates a conjunction whose access-control predicate is
// chosen from the active sources when the query is built.
func AndPolicyChecked(children ...Condition) (*And, error) {
	return newAnd(children, CheckPolicy)
}

func newAnd(children []Condition, check Check) (*And, error) {
	c, err := newComposite(children, check)
	if err != nil {
		return nil, err
	}
	return &And{composite: c}, nil
}

// With returns a new conjunction with c appended.
func (a *And) With(c Condition) (*And, error) {
	return newAnd(append(slices.Clone(a.children), c), a.check)
}

func (a *And) String() string { return renderString(a) }

func (a *And) render(r *renderer) {
	for i, c := range a.children {
		if i > 0 {
			r.write(" and ")
		}
		writeOperand(r, c, false)
	}
	a.renderAccess(r)
}

// terms counts the top-level conjuncts the node renders.
func (a *And) terms() int {
	if a.Access() != AccessNone {
		return len(a.children) + 1
	}
	return len(a.children)
}

// Or is a disjunction.
type Or struct {
	composite
}

// NewOr creates a disjunction checked against the policy of the active
// sources. Any satisfied branch admits a document, so the union is filtered.
func NewOr(children ...Condition) (*Or, error) {
	return OrPolicyChecked(children...)
}

// OrWithoutPermissions creates a disjunction exempt from access-control injection.
func OrWithoutPermissions(children ...Condition) (*Or, error) {
	return newOr(children, CheckBypassed)
}

// OrOwnerChecked creates a disjunction that requires the requester to be the owner.
func OrOwnerChecked(children ...Condition) (*Or, error) {
	return newOr(children, CheckOwner)
}

// OrPermissionsChecked creates a disjunction that requires the requester in permissions.
func OrPermissionsChecked(children ...Condition) (*Or, error) {
	return newOr(children, CheckPermissions)
}

// OrPolicyChecked creates a disjunction whose access-control predicate is
// chosen from the active sources when the query is built.
func OrPolicyChecked(children ...Condition) (*Or, error) {
	return newOr(children, CheckPolicy)
}

func newOr(children []Condition, check Check) (*Or, error) {
	c, err := newComposite(children, check)
	if err != nil {
		return nil, err
	}
	return &Or{composite: c}, nil
}

// With returns a new disjunction with c appended.
func (o *Or) With(c Condition) (*Or, error) {
	return newOr(append(slices.Clone(o.children), c), o.check)
}

func (o *Or) String() string { return renderString(o) }

func (o *Or) render(r *renderer) {
	r.write("(")
	for i, c := range o.children {
		if i > 0 {
			r.write(" or ")
		}
		writeOperand(r, c, true)
	}
	r.write(")")
	o.renderAccess(r)
}

// writeOperand groups operands whose own top-level connective would otherwise
// bind differently inside the parent.
func writeOperand(r *renderer, c Condition, inOr bool) {
	group := false
	switch n := c.(type) {
	case *Raw:
		group = true
	case *And:
		group = inOr && n.terms() > 1
	case *Or:
		group = inOr && n.Access() != AccessNone
	case *TimeRange:
		group = inOr && n.both()
	}
	if !group {
		c.render(r)
		return
	}
	r.write("(")
	c.render(r)
	r.write(")")
}
