package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMissingAPIToken is returned before any network attempt when no API
// token was configured.
var ErrMissingAPIToken = errors.New("BASEROW_API_TOKEN is required")

// APIError is a non-2xx response from Baserow. Detail carries whatever the
// server put in the response body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Detail)
}

// ConnectionError is a transport-level failure to reach the server.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to reach Baserow server at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BaserowClient issues authenticated requests against the Baserow REST API.
// Every call is bounded by the configured timeout; there are no retries.
type BaserowClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewBaserowClient(cfg *Config) *BaserowClient {
	return &BaserowClient{
		baseURL: strings.TrimRight(cfg.BaserowURL, "/"),
		token:   cfg.APIToken,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Call performs one API request and decodes the JSON response body. The
// endpoint is relative to <base>/api. A missing token fails before any
// network I/O.
func (c *BaserowClient) Call(ctx context.Context, method, endpoint string, body interface{}) (interface{}, error) {
	if c.token == "" {
		return nil, ErrMissingAPIToken
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ConnectionError{URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data, resp.Status)}
	}

	if len(data) == 0 {
		return nil, nil
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return decoded, nil
}

// errorDetail extracts the "detail" field Baserow puts in error bodies,
// falling back to the raw body or the HTTP status line.
func errorDetail(body []byte, status string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch detail := parsed["detail"].(type) {
		case string:
			return detail
		case nil:
		default:
			if raw, err := json.Marshal(detail); err == nil {
				return string(raw)
			}
		}
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return status
}
