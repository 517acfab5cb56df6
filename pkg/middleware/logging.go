package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/tracing"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID in and out
const RequestIDHeader = "X-Request-ID"

// RequestIDFromContext returns the ID assigned by RequestLogger
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestLogger assigns a request ID and logs every request once it completes.
// It sits before Auth in the chain, so the user is read back from the wrapped request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			holder := &userHolder{}
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = context.WithValue(ctx, userHolderKey, holder)

			rw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("route", tracing.RouteName(r)),
				zap.Int("status", rw.status),
				zap.Int("bytes", rw.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", ratelimit.IPKeyFunc(r)),
			}
			if holder.userID != "" {
				fields = append(fields, zap.String("user_id", holder.userID))
			}

			switch {
			case rw.status >= 500:
				log.Error("Request failed", fields...)
			case rw.status >= 400:
				log.Warn("Request rejected", fields...)
			default:
				log.Info("Request handled", fields...)
			}
		})
	}
}

const userHolderKey contextKey = "user_holder"

// userHolder lets handlers further down report the authenticated user to the logger
type userHolder struct {
	userID string
}

// NoteUser records the authenticated user of ctx for the request log
func NoteUser(ctx context.Context) {
	holder, ok := ctx.Value(userHolderKey).(*userHolder)
	if !ok {
		return
	}
	if id, err := auth.UserIDFromContext(ctx); err == nil {
		holder.userID = id
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *loggingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *loggingWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
