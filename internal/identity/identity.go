// Package identity resolves authenticated callers to an actor with a role.
package identity

import "context"

// Role discriminates the two account kinds of the marketplace.
type Role string

const (
	// RoleCompany marks accounts that own and sell products.
	RoleCompany Role = "company"
	// RoleClient marks accounts that place orders and write reviews.
	RoleClient Role = "client"
)

// Valid reports whether the role is one of the known kinds.
func (r Role) Valid() bool {
	return r == RoleCompany || r == RoleClient
}

// Actor is the identity attached to an authenticated request.
type Actor struct {
	ID    int64
	Email string
	Role  Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
