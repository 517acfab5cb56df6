package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/psantana5/grain/internal/config"
	"github.com/psantana5/grain/internal/graph"
	"github.com/psantana5/grain/pkg/middleware"
	tlsutil "github.com/psantana5/grain/pkg/tls"
)

// errNotLoggedIn is returned by client commands that need a session
var errNotLoggedIn = errors.New("not logged in, run 'grain login' first")

// apiError is one GraphQL error as reported by the server
type apiError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

func (e *apiError) Error() string {
	if e.Extensions.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Extensions.Code)
}

// client talks to the Grain GraphQL endpoint
type client struct {
	server string
	token  string
	http   *http.Client
}

func newClient(cfg *config.ClientConfig) (*client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if strings.HasPrefix(cfg.Server, "https://") {
		tlsConfig, err := tlsutil.LoadClientConfig(cfg.CAFile, cfg.Insecure)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}
	return &client{
		server: cfg.Server,
		token:  cfg.Token,
		http:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}, nil
}

// connect loads the client config and builds a client. requireLogin fails early without a token.
func connect(requireLogin bool) (*client, error) {
	cfg, _, err := loadClientConfig()
	if err != nil {
		return nil, err
	}
	if requireLogin && cfg.Token == "" {
		return nil, errNotLoggedIn
	}
	return newClient(cfg)
}

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

// do runs a GraphQL operation and decodes data into out
func (c *client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graph.Request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/graphql", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e middleware.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			if e.Error == "token_expired" || e.Error == "invalid_token" {
				return fmt.Errorf("%s, run 'grain login' again", e.Message)
			}
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var result struct {
		Data   json.RawMessage `json:"data"`
		Errors []*apiError     `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Errors) > 0 {
		return result.Errors[0]
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
