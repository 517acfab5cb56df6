package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/models"
)

// Authenticator resolves a session token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Auth validates an optional bearer token and injects the user into the
// request context. Requests without a token pass through anonymously; a token
// that does not authenticate is rejected with 401.
func Auth(a Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := a.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrTokenExpired):
				WriteError(w, http.StatusUnauthorized, "token_expired", "Session expired, log in again")
				return
			case errors.Is(err, auth.ErrInvalidToken):
				WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid session token")
				return
			default:
				log.Error("Failed to authenticate request", zap.Error(err))
				WriteError(w, http.StatusInternalServerError, "internal", "Authentication failed")
				return
			}

			ctx := auth.WithUser(r.Context(), user, token)
			NoteUser(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that carry no authenticated user
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.UserFromContext(r.Context()); err != nil {
			WriteError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ErrorResponse is the JSON body of every non-GraphQL error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error body with the given status
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message})
}
