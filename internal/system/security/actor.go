// Package security defines the caller identity handed to services by the auth middleware.
package security

import "context"

// Role is a staff role carried in bearer tokens.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAgent      Role = "AGENT"
)

// Actor is an already-authenticated staff identity. A nil *Actor means an anonymous caller.
type Actor struct {
	UserID string
	Role   Role
	Email  string
}

// IsElevated reports whether the actor may administer templates, export records and unlock forms.
func (a *Actor) IsElevated() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleSupervisor)
}

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorKey{}).(*Actor)
	return actor
}
