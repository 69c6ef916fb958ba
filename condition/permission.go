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

// AccessCheck selects the access-control attribute(s) a document must grant
// the requester.
type AccessCheck int

const (
	// AccessNone adds no access-control predicate.
	AccessNone AccessCheck = iota
	// AccessOwner requires the requester to own the document.
	AccessOwner
	// AccessPermissions requires the requester in the document's permissions.
	AccessPermissions
	// AccessOwnerOrPermissions accepts either.
	AccessOwnerOrPermissions
)

func (a AccessCheck) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessOwner:
		return "owner"
	case AccessPermissions:
		return "permissions"
	case AccessOwnerOrPermissions:
		return "owner-or-permissions"
	}
	return "unknown"
}

// AccessFor returns the check that applies to a set of active sources:
//
//   - only the identity collection: owner
//   - the identity collection and others: owner or permissions
//   - no identity collection: permissions
//
// An empty set yields AccessPermissions.
func AccessFor(sources []core.Source) AccessCheck {
	if !slices.Contains(sources, core.IdentitySource) {
		return AccessPermissions
	}
	for _, s := range sources {
		if s != core.IdentitySource {
			return AccessOwnerOrPermissions
		}
	}
	return AccessOwner
}

// Access is the access-control predicate. It renders the placeholder
// @identity unless it was bound to an identity.
type Access struct {
	check    AccessCheck
	identity string
}

// NewAccess creates an access-control predicate bound to identity.
// A blank identity is rejected; a check must never degrade to checking nothing.
func NewAccess(check AccessCheck, identity string) (*Access, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if check == AccessNone || check > AccessOwnerOrPermissions {
		return nil, core.NewValidationError("check", check.String(), core.ErrInvalidValue)
	}
	return &Access{check: check, identity: identity}, nil
}

// accessCondition returns an unbound predicate for check.
func accessCondition(check AccessCheck) *Access {
	return &Access{check: check}
}

// Check returns the access check.
func (a *Access) Check() AccessCheck { return a.check }

func (a *Access) String() string { return renderString(a) }

func (a *Access) render(r *renderer) {
	id := a.identity
	if id == "" {
		id = r.identityText()
	}
	switch a.check {
	case AccessOwner:
		r.write(core.OwnerField + " contains " + id)
	case AccessPermissions:
		r.write(core.PermissionsField + " contains " + id)
	case AccessOwnerOrPermissions:
		r.write("(" + core.OwnerField + " contains " + id + " or " + core.PermissionsField + " contains " + id + ")")
	}
}

// Policy decides and builds the access-control predicate for a requester and
// a set of active sources.
type Policy struct {
	identity string
	sources  []core.Source
	access   AccessCheck
}

// NewPolicy creates a policy. Both a valid identity and at least one source
// are required.
func NewPolicy(identity string, sources []core.Source) (*Policy, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if err := core.ValidateSources(sources); err != nil {
		return nil, err
	}
	return &Policy{
		identity: identity,
		sources:  slices.Clone(sources),
		access:   AccessFor(sources),
	}, nil
}

// PermissionCondition builds the access-control predicate for identity over
// the active sources.
func PermissionCondition(identity string, sources []core.Source) (*Access, error) {
	p, err := NewPolicy(identity, sources)
	if err != nil {
		return nil, err
	}
	return p.Condition(), nil
}

// Identity returns the requester identity.
func (p *Policy) Identity() string { return p.identity }

// Sources returns a copy of the active sources.
func (p *Policy) Sources() []core.Source { return slices.Clone(p.sources) }

// Access returns the check selected for the active sources.
func (p *Policy) Access() AccessCheck { return p.access }

// Condition returns the access-control predicate bound to the identity.
func (p *Policy) Condition() *Access {
	return &Access{check: p.access, identity: p.identity}
}

// Wrap conjoins the policy predicate onto c when requireChecks is set and
// returns c unchanged otherwise. A nil c yields the bare predicate.
func (p *Policy) Wrap(c Condition, requireChecks bool) (Condition, error) {
	if !requireChecks {
		return c, nil
	}
	if c == nil {
		return p.Condition(), nil
	}
	wrapped, err := AndWithoutPermissions(c, p.Condition())
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}

// Apply runs ApplyPermissions with the policy's check.
func (p *Policy) Apply(c Condition) Condition {
	return ApplyPermissions(c, p.access)
}
