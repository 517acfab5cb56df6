package graph

import (
	"context"

	"github.com/psantana5/grain/pkg/auth"
)

type contextKey string

const clientKey contextKey = "client"

type client struct {
	ip        string
	userAgent string
}

// WithClient records the caller's address and user agent for rate limiting and sessions
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey, client{ip: ip, userAgent: userAgent})
}

// ClientIPFromContext returns the address set by WithClient
func ClientIPFromContext(ctx context.Context) string {
	c, _ := ctx.Value(clientKey).(client)
	return c.ip
}

func sessionMeta(ctx context.Context) auth.SessionMeta {
	c, _ := ctx.Value(clientKey).(client)
	return auth.SessionMeta{IPAddress: c.ip, UserAgent: c.userAgent}
}
