// Package actor provides the explicit caller identity threaded through every
// operation. Business code never reaches into a session store; handlers
// resolve the actor once and put it on the context.
package actor

import (
	"context"

	"stokado/internal/core/apperror"
)

// Role defines the authorization roles recognized by the ledger core.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleStoreman Role = "storeman"
	RoleViewer   Role = "viewer"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool {
	return a.ID == ""
}

// CanApprove reports whether the actor may approve or reject submitted movements.
func (a Actor) CanApprove() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// CanPost reports whether the actor may post approved movements to the ledger.
func (a Actor) CanPost() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// CanWrite reports whether the actor may create and edit draft documents.
func (a Actor) CanWrite() bool {
	return a.Role != RoleViewer && a.Role != ""
}

type actorKey struct{}

// WithActor adds the actor to the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor from the context, or a zero actor.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

// Require returns the actor from the context or an unauthorized error.
func Require(ctx context.Context) (Actor, error) {
	a := FromContext(ctx)
	if a.IsZero() {
		return Actor{}, apperror.NewUnauthorized("no authenticated actor in request context")
	}
	return a, nil
}
