// Package multitenancy carries the tenant identity through request contexts.
//
// Each end user maps to one tenant in the vector store. The user ID is threaded
// through context values rather than held in shared mutable state, so
// concurrent requests for different users never interleave their tenants.
package multitenancy

import (
	"context"
	"errors"
)

type contextKey string

const userIDKey contextKey = "kgraph_user_id"

// ErrNoUserID indicates that the context carries no user identity.
var ErrNoUserID = errors.New("no user ID found in context")

// WithUserID returns a context carrying the given user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the user ID from the context.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", ErrNoUserID
	}
	return userID, nil
}
