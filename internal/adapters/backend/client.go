package backend

// Package backend is the REST client for the external incident-tracking API.
// Every authorized call carries the session's backend trust token as a bearer
// credential; this package never sees the provider access token.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

// Config captures the backend API connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client calls the incident backend. Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a backend API client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, client: hc}, nil
}

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// SyncUser pushes the derived identity to the backend's user-provisioning
// endpoint. The receiver upserts by email, so repeated calls are harmless.
func (c *Client) SyncUser(ctx context.Context, sync domainauth.UserSync, bearerToken string) error {
	return c.do(ctx, requestParams{
		method: http.MethodPost,
		path:   "/users/sync",
		body:   sync,
		token:  bearerToken,
		out:    nil,
	})
}

// Incident mirrors the backend's incident resource.
type Incident struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ReportedBy  string `json:"reportedBy"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

// BackendUser mirrors the backend's user resource.
type BackendUser struct {
	ID    int64  `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// ListIncidents fetches all incidents visible to the caller.
func (c *Client) ListIncidents(ctx context.Context, bearerToken string) ([]Incident, error) {
	var out []Incident
	err := c.do(ctx, requestParams{
		method: http.MethodGet,
		path:   "/incidents",
		token:  bearerToken,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

// CreateIncident creates a new incident and returns the stored resource.
func (c *Client) CreateIncident(ctx context.Context, incident Incident, bearerToken string) (*Incident, error) {
	var out Incident
	err := c.do(ctx, requestParams{
		method: http.MethodPost,
		path:   "/incidents",
		body:   incident,
		token:  bearerToken,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return &out, nil
}

// UpdateIncidentStatus updates the status of an existing incident.
func (c *Client) UpdateIncidentStatus(ctx context.Context, id int64, status, bearerToken string) (*Incident, error) {
	var out Incident
	err := c.do(ctx, requestParams{
		method: http.MethodPut,
		path:   fmt.Sprintf("/incidents/%d/status", id),
		body:   map[string]string{"status": status},
		token:  bearerToken,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("update incident status: %w", err)
	}
	return &out, nil
}

// DeleteIncident removes an incident.
func (c *Client) DeleteIncident(ctx context.Context, id int64, bearerToken string) error {
	err := c.do(ctx, requestParams{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/incidents/%d", id),
		token:  bearerToken,
	})
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return nil
}

// ListUsers fetches the backend's user records.
func (c *Client) ListUsers(ctx context.Context, bearerToken string) ([]BackendUser, error) {
	var out []BackendUser
	err := c.do(ctx, requestParams{
		method: http.MethodGet,
		path:   "/users",
		token:  bearerToken,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// DeleteUser removes a backend user record.
func (c *Client) DeleteUser(ctx context.Context, id int64, bearerToken string) error {
	err := c.do(ctx, requestParams{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/users/%d", id),
		token:  bearerToken,
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// requestParams groups the parts of a backend request (≤3 params rule).
type requestParams struct {
	method string
	path   string
	body   any
	token  string
	out    any
}

const maxErrorBodyBytes = 2048

func (c *Client) do(ctx context.Context, p requestParams) error {
	var bodyReader io.Reader
	if p.body != nil {
		data, err := json.Marshal(p.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL, err := url.JoinPath(c.baseURL, p.path)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if p.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(p.out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}
