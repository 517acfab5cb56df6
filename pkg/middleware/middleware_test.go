package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/logging/loggingtest"
	"github.com/psantana5/grain/pkg/models"
)

type fakeAuth map[string]error

func (f fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if err, ok := f[token]; ok {
		return nil, err
	}
	return &models.User{ID: "user-" + token, Email: token + "@example.com"}, nil
}

func whoami(w http.ResponseWriter, r *http.Request) {
	id, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		id = "anonymous"
	}
	w.Write([]byte(id))
}

func TestAuth(t *testing.T) {
	authn := fakeAuth{
		"stale": auth.ErrTokenExpired,
		"bogus": auth.ErrInvalidToken,
		"crash": errors.New("db down"),
	}
	h := Auth(authn, loggingtest.New(t))(http.HandlerFunc(whoami))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{"anonymous", "", http.StatusOK, "anonymous", ""},
		{"valid", "Bearer good", http.StatusOK, "user-good", ""},
		{"expired", "Bearer stale", http.StatusUnauthorized, "", "token_expired"},
		{"invalid", "Bearer bogus", http.StatusUnauthorized, "", "invalid_token"},
		{"store failure", "Bearer crash", http.StatusInternalServerError, "", "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRequireUser(t *testing.T) {
	h := Auth(fakeAuth{}, loggingtest.New(t))(RequireUser(http.HandlerFunc(whoami)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	log, logs := loggingtest.NewObserved(t, zapcore.InfoLevel)
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
	h := RequestLogger(log)(Auth(fakeAuth{}, log)(inner))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set("Authorization", "Bearer ana")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seenID)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("Request rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.Equal(t, "user-ana", fields["user_id"])
}

func TestRequestLoggerGeneratesID(t *testing.T) {
	h := RequestLogger(loggingtest.New(t))(http.HandlerFunc(whoami))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
