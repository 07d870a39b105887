// Package adminclient is the HTTP client for internal/adminapi's
// read-only introspection endpoints: a Config/doRequest shape shared
// with this codebase's other HTTP clients, generalized from a
// client-facing publish/subscribe API to a router-operator one.
package adminclient

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

// Config holds client construction parameters.
type Config struct {
	// ServerURL is the base URL of the router's admin API, e.g.
	// "http://localhost:8081".
	ServerURL string

	// Token is the bearer token sent with every request. Leave empty
	// if the admin API was started with NoAuth.
	Token string

	Timeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Client talks to one router's admin API.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
}

// NewClient creates a Client for cfg.ServerURL.
func NewClient(cfg Config) (*Client, error) {
	cfg.setDefaults()
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("adminclient: ServerURL is required")
	}
	baseURL, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("adminclient: invalid ServerURL: %w", err)
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Session mirrors router.SessionInfo.
type Session struct {
	ID    uint64 `json:"ID"`
	Realm string `json:"Realm"`
	State string `json:"State"`
}

// SessionsResponse is the decoded /api/v1/sessions body.
type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// RealmsResponse is the decoded /api/v1/realms body.
type RealmsResponse struct {
	Realms []string `json:"realms"`
}

// Topic mirrors adminapi.TopicInfo.
type Topic struct {
	URI         string `json:"uri"`
	Policy      string `json:"policy"`
	Subscribers int    `json:"subscribers"`
}

// TopicsResponse is the decoded /api/v1/realms/{realm}/topics body.
type TopicsResponse struct {
	Realm  string  `json:"realm"`
	Topics []Topic `json:"topics"`
}

// Registration mirrors router.ProcedureInfo.
type Registration struct {
	URI       string `json:"URI"`
	Policy    string `json:"Policy"`
	SessionID uint64 `json:"SessionID"`
	Pending   int    `json:"Pending"`
}

// RegistrationsResponse is the decoded /api/v1/realms/{realm}/registrations body.
type RegistrationsResponse struct {
	Realm         string         `json:"realm"`
	Registrations []Registration `json:"registrations"`
}

// HealthResponse is the decoded /api/v1/health body.
type HealthResponse struct {
	Healthy  bool   `json:"healthy"`
	Sessions int    `json:"sessions"`
	Realms   int    `json:"realms"`
	Message  string `json:"message"`
}

// ErrorResponse is the decoded body of a non-2xx admin API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Sessions lists every connected session across every realm.
func (c *Client) Sessions(ctx context.Context) (*SessionsResponse, error) {
	var resp SessionsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("adminclient: list sessions: %w", err)
	}
	return &resp, nil
}

// Realms lists every realm for which the router has accepted a HELLO.
func (c *Client) Realms(ctx context.Context) (*RealmsResponse, error) {
	var resp RealmsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/realms", nil, &resp); err != nil {
		return nil, fmt.Errorf("adminclient: list realms: %w", err)
	}
	return &resp, nil
}

// Topics lists the live topic entries for realmName.
func (c *Client) Topics(ctx context.Context, realmName string) (*TopicsResponse, error) {
	var resp TopicsResponse
	path := fmt.Sprintf("/api/v1/realms/%s/topics", url.PathEscape(realmName))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("adminclient: list topics: %w", err)
	}
	return &resp, nil
}

// Registrations lists the live procedure registrations for realmName.
func (c *Client) Registrations(ctx context.Context, realmName string) (*RegistrationsResponse, error) {
	var resp RegistrationsResponse
	path := fmt.Sprintf("/api/v1/realms/%s/registrations", url.PathEscape(realmName))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("adminclient: list registrations: %w", err)
	}
	return &resp, nil
}

// Health reports router liveness as seen by the admin API.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("adminclient: get health: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("API error (%d): %s - %s", resp.StatusCode, resp.Status, errResp.Message)
	}

	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
