package shared

import "context"

// Role enumerates the two user roles.
type Role string

const (
	// RoleOwner has full financial visibility, approvals, and user/product management.
	RoleOwner Role = "OWNER"
	// RoleSeller can record sales, submit expenses, and submit closings.
	RoleSeller Role = "SELLER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleSeller
}

// Claims carries the authenticated identity for a single request. Handlers and
// services receive claims explicitly instead of reading ambient session state.
type Claims struct {
	UserID int64
	Name   string
	Role   Role
}

// IsOwner reports whether the claims carry the OWNER role.
func (c Claims) IsOwner() bool {
	return c.Role == RoleOwner
}

type claimsContextKey struct{}

// ContextWithClaims stores claims in the context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts claims from the context. The second return value
// is false when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}
