package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const workspaceIDKey contextKey = "workspace_id"

// ErrWorkspaceNotFound is returned when no workspace id exists in the request context.
var ErrWorkspaceNotFound = errors.New("workspace_id not found in context")

// WorkspaceIDFromCtx extracts the caller's workspace id from the request context.
// Returns uuid.Nil and ErrWorkspaceNotFound if the Workspace middleware did not run.
func WorkspaceIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(workspaceIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrWorkspaceNotFound
	}
	return id, nil
}

// WithWorkspaceID returns a new context with the given workspace id attached.
func WithWorkspaceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, workspaceIDKey, id)
}
