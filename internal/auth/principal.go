package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    uuid.UUID
	Name      string
	Email     string
	Roles     RoleSet
	SessionID string
	ExpiresAt time.Time
}

// HasAnyRole reports whether the principal holds at least one of the roles in
// required. An empty required set is satisfied by any principal.
func (p *Principal) HasAnyRole(required RoleSet) bool {
	if p == nil {
		return false
	}
	return required.Empty() || p.Roles.Intersects(required)
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal from the request context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
