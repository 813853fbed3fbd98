// Package httpapi implements the remote template contract over the admin
// REST backend: token auth, JSON bodies, and the backend's two error shapes
// (field-validation maps on 400, {"error": {...}} envelopes elsewhere).
package httpapi

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

	"github.com/goliatone/go-formsession/pkg/remote"
)

const (
	templatePath = "/admin/dynamic_form/"
	customerPath = "/admin/customers/"
)

// Error is a non-2xx backend response, independent of which operation
// triggered it. Create and Update wrap it into the submit taxonomy; fetch
// paths surface it as-is so a load failure never carries submit semantics.
type Error struct {
	StatusCode int
	Message    string
	Fields     remote.FieldErrors
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("httpapi: HTTP %d: %s", e.StatusCode, e.Fields)
	}
	return fmt.Sprintf("httpapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the Authorization token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout bounds each request. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client is the HTTP implementation of remote.Client.
type Client struct {
	base    string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient validates the base URL and applies options.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("httpapi: base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("httpapi: invalid base url: %w", err)
	}

	c := &Client{base: trimmed, http: http.DefaultClient}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// Fetch implements remote.Client.
func (c *Client) Fetch(ctx context.Context, id string) (remote.Record, error) {
	var rec remote.Record
	err := c.do(ctx, http.MethodGet, templatePath+url.PathEscape(id)+"/", nil, &rec)
	return rec, err
}

// Create implements remote.Client.
func (c *Client) Create(ctx context.Context, payload remote.Payload) (remote.Record, error) {
	var rec remote.Record
	err := c.do(ctx, http.MethodPost, templatePath, payload, &rec)
	return rec, submitError(err)
}

// Update implements remote.Client.
func (c *Client) Update(ctx context.Context, id string, payload remote.Payload) (remote.Record, error) {
	var rec remote.Record
	err := c.do(ctx, http.MethodPut, templatePath+url.PathEscape(id)+"/", payload, &rec)
	return rec, submitError(err)
}

// submitError lifts backend rejections on the save paths into the session's
// recoverable submit taxonomy. Transport failures pass through untouched.
func submitError(err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return &remote.SubmitError{Message: apiErr.Message, Fields: apiErr.Fields, Err: apiErr}
	}
	return err
}

// CustomerName implements remote.Client.
func (c *Client) CustomerName(ctx context.Context, customerID int) (string, error) {
	var out struct {
		CustomerName string `json:"customer_name"`
		Name         string `json:"name"`
	}
	path := fmt.Sprintf("%s%d/", customerPath, customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if out.CustomerName != "" {
		return out.CustomerName, nil
	}
	return out.Name, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	reqCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpapi: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, resp.Status, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpapi: decode response: %w", err)
	}
	return nil
}

// parseAPIError decodes a failure body into the neutral Error type. A 400
// whose body is a {"field": ["msg"]} map carries field-level messages;
// anything else surfaces the error envelope or a plain status message.
func parseAPIError(code int, status string, body []byte) error {
	if code == http.StatusBadRequest {
		if fields, ok := parseFieldErrors(body); ok {
			return &Error{StatusCode: code, Fields: fields}
		}
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &Error{StatusCode: code, Message: envelope.Error.Message}
	}

	return &Error{StatusCode: code, Message: fmt.Sprintf("HTTP %s", status)}
}

func parseFieldErrors(body []byte) (remote.FieldErrors, bool) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	if _, hasEnvelope := raw["error"]; hasEnvelope {
		return nil, false
	}

	fields := remote.FieldErrors{}
	for name, value := range raw {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				if msg, ok := item.(string); ok {
					fields[name] = append(fields[name], msg)
				}
			}
		case string:
			fields[name] = append(fields[name], v)
		}
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}
