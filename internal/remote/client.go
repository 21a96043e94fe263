// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package remote implements the HTTP client for the Tally sync backend.
//
// The client handles all communication with the backend:
//   - GET  /v1/sync/{owner}/templates      - Fetch the remote template set
//   - POST /v1/sync/{owner}/templates:push - Push locally changed templates
//   - GET  /v1/sync/{owner}/budgets        - Fetch the remote budget set
//   - POST /v1/sync/{owner}/budgets:push   - Push locally changed budgets
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tallyfin/tally/internal/model"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseSize limits response body reads to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is the Tally sync backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string // API key for Bearer auth
}

// New creates a new backend client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewWithAPIKey creates a new backend client with API key authentication.
// When an API key is set, all requests include an Authorization: Bearer header.
func NewWithAPIKey(baseURL, apiKey string) *Client {
	c := New(baseURL)
	c.apiKey = apiKey
	return c
}

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// templatesPayload is the wire shape for both fetch responses and push
// requests on the templates endpoints.
type templatesPayload struct {
	Templates []model.RecurringTemplate `json:"templates"`
}

// budgetsPayload is the wire shape for the budgets endpoints.
type budgetsPayload struct {
	Budgets []model.Budget `json:"budgets"`
}

// pushResponse acknowledges a push.
type pushResponse struct {
	Accepted int `json:"accepted"`
}

// FetchTemplates retrieves the remote template set for an owner.
func (c *Client) FetchTemplates(ctx context.Context, ownerID string) ([]model.RecurringTemplate, error) {
	var resp templatesPayload
	if err := c.get(ctx, c.ownerPath(ownerID, "templates"), &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// PushTemplates uploads locally changed templates.
func (c *Client) PushTemplates(ctx context.Context, ownerID string, tpls []model.RecurringTemplate) error {
	var resp pushResponse
	return c.post(ctx, c.ownerPath(ownerID, "templates:push"), templatesPayload{Templates: tpls}, &resp)
}

// FetchBudgets retrieves the remote budget set for an owner.
func (c *Client) FetchBudgets(ctx context.Context, ownerID string) ([]model.Budget, error) {
	var resp budgetsPayload
	if err := c.get(ctx, c.ownerPath(ownerID, "budgets"), &resp); err != nil {
		return nil, err
	}
	return resp.Budgets, nil
}

// PushBudgets uploads locally changed budgets.
func (c *Client) PushBudgets(ctx context.Context, ownerID string, budgets []model.Budget) error {
	var resp pushResponse
	return c.post(ctx, c.ownerPath(ownerID, "budgets:push"), budgetsPayload{Budgets: budgets}, &resp)
}

func (c *Client) ownerPath(ownerID, resource string) string {
	return "/v1/sync/" + url.PathEscape(ownerID) + "/" + resource
}

// post sends a POST request with a JSON body and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.do(req, respBody)
}

// get sends a GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, respBody any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.do(req, respBody)
}

func (c *Client) do(req *http.Request, respBody any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Read maxResponseSize+1 to detect oversized responses while still
	// accepting responses exactly at the limit.
	respBodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if int64(len(respBodyBytes)) > maxResponseSize {
		return fmt.Errorf("response exceeds maximum size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			StatusCode: resp.StatusCode,
			Body:       string(respBodyBytes),
		}
	}

	if err := json.Unmarshal(respBodyBytes, respBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
