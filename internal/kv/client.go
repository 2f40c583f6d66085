// Package kv provides a minimal client for the Consul KV HTTP API.
//
// Only the three calls vongform needs are implemented: fetching a single
// key, fetching every entry under a prefix, and a check-and-set write keyed
// on the entry's ModifyIndex.
package kv

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAddr is used when CONSUL_HTTP_ADDR is not set.
const DefaultAddr = "http://localhost:8500"

// Entry is a single KV pair as returned by GET /v1/kv/{key}.
// Value holds the base64 text exactly as the API returned it.
type Entry struct {
	CreateIndex uint64
	Flags       uint64
	Key         string
	LockIndex   uint64
	ModifyIndex uint64
	Value       string
}

// Decode returns the raw bytes of the entry's base64 value.
func (e Entry) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Value)
}

// TransportError reports a request that could not be completed.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to a single Consul agent.
type Client struct {
	addr   string
	token  string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the ACL token sent as X-Consul-Token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a new client for the agent at addr.
// If addr is empty, it reads from CONSUL_HTTP_ADDR and falls back to DefaultAddr.
func NewClient(addr string, opts ...Option) *Client {
	if addr == "" {
		addr = os.Getenv("CONSUL_HTTP_ADDR")
	}
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	c := &Client{
		addr: strings.TrimRight(addr, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the agent address the client was configured with.
func (c *Client) Addr() string {
	return c.addr
}

// Get fetches a single key. A non-200 response means the key is absent and
// yields (nil, nil).
func (c *Client) Get(ctx context.Context, key string) (*Entry, error) {
	entries, found, err := c.fetch(ctx, key, false)
	if err != nil || !found || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// List fetches every entry whose key starts with prefix. A non-200 response
// means there are no entries and yields (nil, nil).
func (c *Client) List(ctx context.Context, prefix string) ([]Entry, error) {
	entries, _, err := c.fetch(ctx, prefix, true)
	return entries, err
}

// CAS writes body to key only if the key's ModifyIndex still equals index.
// An index of 0 only succeeds when the key does not exist yet.
// The returned bool is false when the agent rejected the write.
func (c *Client) CAS(ctx context.Context, key string, body []byte, index uint64) (bool, error) {
	endpoint, err := c.endpoint(key, url.Values{"cas": {strconv.FormatUint(index, 10)}})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, &TransportError{Method: http.MethodPut, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &TransportError{Method: http.MethodPut, URL: endpoint, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return false, &TransportError{
			Method: http.MethodPut,
			URL:    endpoint,
			Err:    fmt.Errorf("unexpected status: %d", resp.StatusCode),
		}
	}

	// Consul answers a CAS write with a bare JSON boolean.
	switch strings.TrimSpace(string(respBody)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected CAS response %q", respBody)
	}
}

func (c *Client) fetch(ctx context.Context, key string, recurse bool) ([]Entry, bool, error) {
	var query url.Values
	if recurse {
		query = url.Values{"recurse": {"true"}}
	}
	endpoint, err := c.endpoint(key, query)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, &TransportError{Method: http.MethodGet, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, false, fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return entries, true, nil
}

func (c *Client) endpoint(key string, query url.Values) (string, error) {
	u, err := url.Parse(c.addr)
	if err != nil {
		return "", fmt.Errorf("parse consul address %q: %w", c.addr, err)
	}
	u = u.JoinPath("v1", "kv", key)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("X-Consul-Token", c.token)
	}
}
