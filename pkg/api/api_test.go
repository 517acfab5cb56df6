package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/psantana5/grain/internal/graph"
	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/logging/loggingtest"
	"github.com/psantana5/grain/pkg/metrics"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/store"
)

type testServer struct {
	*httptest.Server
	shop    *shop.Service
	metrics *metrics.Metrics
}

type brokenStore struct{ *store.MemoryStore }

func (brokenStore) HealthCheck(ctx context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, s store.Store) *testServer {
	t.Helper()
	router, svc, m := newTestRouter(t, s, nil, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, shop: svc, metrics: m}
}

func newTestRouter(t *testing.T, s store.Store, loginLimiter *ratelimit.Limiter, clientIP *ratelimit.ClientIP) (http.Handler, *shop.Service, *metrics.Metrics) {
	t.Helper()
	log := loggingtest.New(t)
	authManager := auth.NewManager(s, auth.Options{BcryptCost: bcrypt.MinCost, SessionTTL: time.Hour})
	svc := shop.New(s, log)
	schema, err := graph.NewResolver(svc, authManager, loginLimiter, log).Schema()
	require.NoError(t, err)

	m := metrics.New(nil, log)
	router := NewRouter(Options{
		Shop:          svc,
		Schema:        schema,
		Authenticator: authManager,
		Metrics:       m,
		ClientIP:      clientIP,
		DataDir:       t.TempDir(),
		Log:           log,
	})
	return router, svc, m
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func (s *testServer) graphql(t *testing.T, token, query string, vars map[string]interface{}) (int, gqlResponse) {
	t.Helper()
	body, err := json.Marshal(graph.Request{Query: query, Variables: vars})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out gqlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, out := s.graphql(t, "", `mutation($email: String!) {
		register(email: $email, password: "correct horse", name: "Shop") { token }
	}`, map[string]interface{}{"email": email})
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, out.Errors)

	var payload struct{ Token string }
	require.NoError(t, json.Unmarshal(out.Data["register"], &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func TestGraphQLOverHTTP(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	token := s.register(t, "maker@example.com")

	status, out := s.graphql(t, token, `mutation {
		createLumber(input: {species: "Walnut", width: 6, thickness: 1, length: 96, quantity: 2, pricePerBoardFoot: 12}) { id species }
	}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, out.Errors)

	status, out = s.graphql(t, token, `query Me { me { email } }`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"email":"maker@example.com"}`, string(out.Data["me"]))

	expected := `
# HELP grain_graphql_operations_total GraphQL operations by top-level field and outcome.
# TYPE grain_graphql_operations_total counter
grain_graphql_operations_total{operation="createLumber",outcome="success"} 1
grain_graphql_operations_total{operation="me",outcome="success"} 1
grain_graphql_operations_total{operation="register",outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(s.metrics.Registry(), strings.NewReader(expected), "grain_graphql_operations_total"))
}

func TestGraphQLErrorsStay200(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	status, out := s.graphql(t, "", `{ lumbers { id } }`, nil)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, graph.CodeUnauthenticated, out.Errors[0].Extensions["code"])
}

func TestGraphQLBadRequests(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	resp, err := http.Post(s.URL+"/graphql", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(s.URL+"/graphql", "application/json", strings.NewReader(`{"query":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGraphQLGet(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	q := url.Values{"query": {`{ boardFeet(width: 12, thickness: 1, length: 12) }`}}
	resp, err := http.Get(s.URL + "/graphql?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out gqlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.JSONEq(t, `1`, string(out.Data["boardFeet"]))
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	req, _ := http.NewRequest(http.MethodPost, s.URL+"/graphql", strings.NewReader(`{"query":"{ me { id } }"}`))
	req.Header.Set("Authorization", "Bearer nope.nope")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSharedProjectEndpoint(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	token := s.register(t, "share@example.com")

	user, err := auth.NewManager(s.shop.Store(), auth.Options{}).Authenticate(context.Background(), token)
	require.NoError(t, err)

	ctx := context.Background()
	project, err := s.shop.Projects.Create(ctx, user.ID, &models.Project{Name: "Hall table", LaborHours: 2, HourlyRate: 40})
	require.NoError(t, err)
	shared, err := s.shop.ShareProject(ctx, user.ID, project.ID)
	require.NoError(t, err)

	resp, err := http.Get(s.URL + "/api/shared/" + *shared.ShareToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view shop.SharedProject
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "Hall table", view.Name)
	assert.InDelta(t, 80, view.Cost.LaborCost, 1e-9)

	missing, err := http.Get(s.URL + "/api/shared/unknown")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["database"])
	assert.Contains(t, []string{"healthy", "degraded"}, body["status"])
	assert.Contains(t, body, "host")
	assert.NotContains(t, body, "memory", "host stats are nested under host")
	assert.NotContains(t, body, "disk", "host stats are nested under host")
	host, ok := body["host"].(map[string]interface{})
	require.True(t, ok, "host = %v", body["host"])
	if disk, ok := host["disk"].(map[string]interface{}); ok {
		assert.Contains(t, disk, "usedPercent")
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	s := newTestServer(t, brokenStore{store.NewMemoryStore()})

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
}

func TestMetricsRouter(t *testing.T) {
	m := metrics.New(nil, loggingtest.New(t))
	srv := httptest.NewServer(MetricsRouter(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())

	resp, err := http.Get(s.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// failedLogins sends n wrong-password logins from one peer, each claiming a different
// forwarded address, and counts how many were throttled
func failedLogins(t *testing.T, router http.Handler, n int) int {
	t.Helper()
	limited := 0
	for i := 0; i < n; i++ {
		body, err := json.Marshal(graph.Request{
			Query: `mutation { login(email: "nobody@example.com", password: "wrong password") { token } }`,
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
		req.RemoteAddr = "192.0.2.1:40000"
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var out gqlResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
		require.Len(t, out.Errors, 1)
		if out.Errors[0].Extensions["code"] == graph.CodeRateLimited {
			limited++
		}
	}
	return limited
}

func TestLoginLimitIgnoresForwardedFor(t *testing.T) {
	router, _, _ := newTestRouter(t, store.NewMemoryStore(), ratelimit.NewLimiter(0.001, 2), nil)
	assert.Equal(t, 18, failedLogins(t, router, 20))
}

func TestLoginLimitBehindTrustedProxy(t *testing.T) {
	clientIP, err := ratelimit.NewClientIP([]string{"192.0.2.1"})
	require.NoError(t, err)
	router, _, _ := newTestRouter(t, store.NewMemoryStore(), ratelimit.NewLimiter(0.001, 2), clientIP)
	assert.Equal(t, 0, failedLogins(t, router, 20), "each forwarded client has its own bucket")
}

func TestOperationLabelsBounded(t *testing.T) {
	router, _, m := newTestRouter(t, store.NewMemoryStore(), nil, nil)
	for i := 0; i < 20; i++ {
		body, err := json.Marshal(graph.Request{Query: `{ me { id } }`, OperationName: fmt.Sprintf("op%d", i)})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	expected := `
# HELP grain_graphql_operations_total GraphQL operations by top-level field and outcome.
# TYPE grain_graphql_operations_total counter
grain_graphql_operations_total{operation="unknown",outcome="error"} 20
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "grain_graphql_operations_total"))
}
