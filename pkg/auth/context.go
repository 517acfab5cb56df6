package auth

import (
	"context"
	"errors"

	"github.com/psantana5/grain/pkg/models"
)

type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

var ErrNoUserInContext = errors.New("no user in context")

// WithUser adds the authenticated user and its token to context
func WithUser(ctx context.Context, user *models.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// UserFromContext extracts the authenticated user
func UserFromContext(ctx context.Context) (*models.User, error) {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// UserIDFromContext extracts the authenticated user ID
func UserIDFromContext(ctx context.Context) (string, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// TokenFromContext returns the session token the request authenticated with
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
