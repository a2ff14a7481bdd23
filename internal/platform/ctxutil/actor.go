package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

// Actor is the authenticated caller attached by the auth middleware.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == "admin"
}

// DisplayName is what gets recorded in requested_by / uploaded_by / approved_by columns.
func (a *Actor) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return a.UserID.String()
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func GetActor(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	if a, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return a
	}
	return nil
}
