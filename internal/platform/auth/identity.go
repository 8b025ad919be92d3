package auth

import (
	"context"
	"slices"
	"strings"
)

// Roles carried in the "role" custom claim. Tokens without the claim act as RoleUser.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Identity is the verified caller. Roles are lower-cased and unique.
type Identity struct {
	UID   string
	Email string
	Name  string
	Roles []string
}

func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, strings.ToLower(strings.TrimSpace(role)))
}

func (i *Identity) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, i.HasRole)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
