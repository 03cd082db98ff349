// Package policy is the single place where the marketplace decides who may
// do what.  Every operation names an Action; the table below maps each
// action to the roles allowed to attempt it and to the relation the caller
// must have with the target record (owner, client party, recipient...).
package policy

import (
    "context"
    "errors"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// Sentinel errors returned by Gate.Authorize.
var (
    ErrUnauthenticated = errors.New("unauthenticated")
    ErrForbidden       = errors.New("forbidden")
    ErrNoRuleDefined   = errors.New("no rule defined for action")
)

// Caller is the authenticated identity threaded through every operation.
type Caller struct {
    ID   uint64
    Role model.Role
}

// IsZero reports whether no user is attached.
func (c Caller) IsZero() bool { return c.ID == 0 }

// Record interfaces implemented by the models.  A rule's relation is
// evaluated against whichever of these the resource satisfies.
type (
    Owned interface{ OwnerID() uint64 }

    TwoParty interface {
        ClientParty() uint64
        ProfessionalParty() uint64
    }

    Addressed interface {
        SenderParty() uint64
        RecipientParty() uint64
    }
)

// Gate evaluates the rule table.
type Gate struct {
    rules map[Action]Rule
}

// NewGate returns a gate loaded with the marketplace rule table.
func NewGate() *Gate {
    return &Gate{rules: DefaultRules()}
}

// NewGateWithRules builds a gate around a custom table.
func NewGateWithRules(rules map[Action]Rule) *Gate {
    return &Gate{rules: rules}
}

// Authorize returns nil when caller may perform action on resource.
// resource may be nil for actions that do not target a record.
func (g *Gate) Authorize(ctx context.Context, caller Caller, action Action, resource any) error {
    if caller.IsZero() {
        return ErrUnauthenticated
    }
    r, ok := g.rules[action]
    if !ok {
        return ErrNoRuleDefined
    }
    if !r.allows(caller, resource) {
        return ErrForbidden
    }
    return nil
}

// Can is Authorize as a bool.
func (g *Gate) Can(ctx context.Context, caller Caller, action Action, resource any) bool {
    return g.Authorize(ctx, caller, action, resource) == nil
}
