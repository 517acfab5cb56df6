package graph

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

// Error codes reported in extensions.code
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeConflict        = "CONFLICT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

var errRateLimited = errors.New("too many attempts, slow down")

// Error is a resolver error carrying a client-facing code
type Error struct {
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

// Extensions implements gqlerrors.ExtendedError
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// classify maps service errors to codes. Internal errors are logged and masked.
func classify(ctx context.Context, log *zap.Logger, err error) error {
	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}

	code := CodeInternal
	switch {
	case errors.Is(err, auth.ErrNoUserInContext),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidCredentials):
		code = CodeUnauthenticated
	case errors.Is(err, store.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, models.ErrInvalid):
		code = CodeBadUserInput
	case errors.Is(err, store.ErrDeleted),
		errors.Is(err, store.ErrNotDeleted),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, auth.ErrEmailTaken):
		code = CodeConflict
	case errors.Is(err, errRateLimited):
		code = CodeRateLimited
	}

	if code == CodeInternal {
		if ctx.Err() != nil {
			return &Error{Code: CodeInternal, Message: "request cancelled", err: err}
		}
		log.Error("Resolver failed", zap.Error(err))
		return &Error{Code: CodeInternal, Message: "internal server error", err: err}
	}
	if code == CodeUnauthenticated && errors.Is(err, auth.ErrNoUserInContext) {
		return &Error{Code: code, Message: "authentication required", err: err}
	}
	return &Error{Code: code, Message: err.Error(), err: err}
}
