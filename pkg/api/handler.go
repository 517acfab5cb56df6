// Package api is the HTTP surface of the Grain server: the GraphQL endpoint,
// the public shared-project view and the health check.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/graph"
	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/metrics"
	"github.com/psantana5/grain/pkg/middleware"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

// MaxRequestBytes bounds the size of a GraphQL request body
const MaxRequestBytes = 1 << 20

// Handler serves the Grain HTTP API
type Handler struct {
	shop    *shop.Service
	schema  graphql.Schema
	metrics *metrics.Metrics
	log     *zap.Logger
	started time.Time
	dataDir string

	// clientIP keys rate limits and sessions by client address
	clientIP func(*http.Request) string
}

// Options configures the router
type Options struct {
	Shop          *shop.Service
	Schema        graphql.Schema
	Authenticator middleware.Authenticator

	// Metrics and Limiter are optional
	Metrics *metrics.Metrics
	Limiter *ratelimit.Limiter
	Tracing *tracing.Provider

	// ClientIP resolves client addresses behind trusted proxies; nil uses the direct peer
	ClientIP *ratelimit.ClientIP

	// DataDir is the directory whose disk usage /health reports
	DataDir string
	Log     *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(opts Options) *Handler {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return &Handler{
		shop:     opts.Shop,
		schema:   opts.Schema,
		metrics:  opts.Metrics,
		log:      opts.Log.Named("api"),
		started:  time.Now(),
		dataDir:  dataDir,
		clientIP: opts.ClientIP.KeyFunc,
	}
}

// NewRouter builds the router with the full middleware chain:
// tracing, request logging, metrics, rate limiting, authentication
func NewRouter(opts Options) *mux.Router {
	h := NewHandler(opts)
	r := mux.NewRouter()

	if opts.Tracing != nil {
		r.Use(tracing.HTTPMiddleware(opts.Tracing))
	}
	r.Use(middleware.RequestLogger(opts.Log.Named("http")))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware(h.clientIP))
	}
	r.Use(middleware.Auth(opts.Authenticator, opts.Log.Named("auth")))

	h.RegisterRoutes(r)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "No such endpoint")
	})
	return r
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/graphql", h.GraphQL).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/shared/{token}", h.SharedProject).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// GraphQL executes a GraphQL request. Execution errors are reported inside
// the 200 response; only undecodable requests get 400.
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	var req graph.Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "bad_request", "variables must be a JSON object")
				return
			}
		}
	default:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
			return
		}
	}
	if req.Query == "" {
		middleware.WriteError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	ctx := graph.WithClient(r.Context(), h.clientIP(r), r.UserAgent())
	result := graph.Execute(ctx, h.schema, req)
	if h.metrics != nil {
		h.metrics.ObserveGraphQL(graph.OperationLabel(h.schema, req), len(result.Errors) > 0)
	}

	writeJSON(w, http.StatusOK, result)
}

// SharedProject serves the public view of a shared project
func (h *Handler) SharedProject(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	view, err := h.shop.SharedProject(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "Shared project not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load shared project", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "internal", "Failed to load shared project")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// MetricsRouter serves /metrics and a liveness check on the metrics port
func MetricsRouter(m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	return r
}

// NewServer wraps a handler in an http.Server with the API timeouts
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
