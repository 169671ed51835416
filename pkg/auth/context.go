package auth

import (
	"context"
	"errors"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContext is the authenticated identity carried through a request.
type UserContext struct {
	UserID string
	Email  string
}

// SetUserInContext attaches the authenticated user to the context.
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the authenticated user, or an error on
// unauthenticated requests.
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, errors.New("no user in context")
	}
	return user, nil
}

// UserIDFromContext is a convenience accessor for handlers that only need
// the id. Empty string means unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	user, err := GetUserFromContext(ctx)
	if err != nil {
		return ""
	}
	return user.UserID
}
