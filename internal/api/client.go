// Package api is the HTTP client for the remote todo collection served
// under {base}/api/todos.
package api

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

	"github.com/Makepad-fr/tada/internal/model"
)

// DefaultBaseURL is used when no API base is configured.
const DefaultBaseURL = "http://localhost:8000"

const (
	collectionPath = "/api/todos"
	defaultTimeout = 10 * time.Second
)

// StatusError is returned for any non-2xx response, and for a 2xx response
// whose body is an {"error": ...} envelope instead of a record.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string // server's "error" field, if it sent one
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Code, http.StatusText(e.Code), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to one todo collection.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sends requests through hc. hc is copied, never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request made by the client. Without it the
// http client's own timeout is kept, or 10s when it has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a client for the API rooted at baseURL (scheme and host,
// optionally a path prefix; "/api/todos" is appended).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api base url %q: missing host", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/") + collectionPath,
		http: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.http
	switch {
	case c.timeout > 0:
		hc.Timeout = c.timeout
	case hc.Timeout == 0:
		hc.Timeout = defaultTimeout
	}
	c.http = &hc
	return c, nil
}

// BaseURL returns the collection URL requests are sent to.
func (c *Client) BaseURL() string { return c.base }

// List fetches the whole collection in server order.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, c.base, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, id string) (model.Todo, error) {
	var t model.Todo
	err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, &t)
	return t, err
}

// Create submits a draft and returns the stored record.
func (c *Client) Create(ctx context.Context, d model.Draft) (model.Todo, error) {
	var t model.Todo
	err := c.do(ctx, http.MethodPost, c.base, d, &t)
	return t, err
}

// Update sends a partial update and returns the full record.
func (c *Client) Update(ctx context.Context, id string, p model.Patch) (model.Todo, error) {
	var t model.Todo
	err := c.do(ctx, http.MethodPut, c.itemURL(id), p, &t)
	return t, err
}

// Delete removes a record. The response body is ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id string) string {
	return c.base + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Message: errorMessage(b)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, target, err)
	}
	// Some servers answer a missing record with 200 and an error envelope.
	if msg := errorMessage(b); msg != "" {
		return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, target, err)
	}
	return nil
}

// errorMessage extracts the "error" (or FastAPI "detail") field of a JSON
// object body. It returns "" for anything else.
func errorMessage(b []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if json.Unmarshal(b, &payload) != nil {
		return ""
	}
	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Detail != nil:
		return fmt.Sprint(payload.Detail)
	}
	return ""
}
