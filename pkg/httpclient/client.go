// Package httpclient is a typed client for the edge agent's admin API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds client configuration.
type Config struct {
	// ServerURL is the admin API base URL, e.g. "http://agent:8081".
	ServerURL string

	// ClientID identifies this client to the login endpoint.
	ClientID string

	// Timeout applies per request. Zero means 30s.
	Timeout time.Duration
}

// SetDefaults fills zero fields with safe defaults.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client talks to one agent's admin API.
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a client for the given configuration.
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Authenticate logs in and stores the bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	req := map[string]string{"clientId": c.config.ClientID}

	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp, false); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	c.token = resp.Token
	return nil
}

// Status fetches the agent's session status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/status", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &resp, nil
}

// Subscriptions lists the agent's subscription table.
func (c *Client) Subscriptions(ctx context.Context) (*SubscriptionsResponse, error) {
	var resp SubscriptionsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/subscriptions", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return &resp, nil
}

// Publish sends a message through the agent's session.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	var resp PublishResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/publish", req, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to publish: %w", err)
	}
	return &resp, nil
}

// IsAuthenticated reports whether a token is stored.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// SetToken installs a previously issued token, skipping Authenticate.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the stored token.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) doRequest(ctx context.Context, method, path string, reqBody, respBody interface{}, requireAuth bool) error {
	if requireAuth && c.token == "" {
		return fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	u := c.baseURL.JoinPath(path)

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
