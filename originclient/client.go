// Package originclient implements the HTTP client for the external origin
// registry service that lets relays discover each other's upstream URLs
// for namespaces they don't locally announce.
//
// Grounded on original_source/moq-api/src/client.rs for the exact
// GET/POST/PATCH/DELETE /origin/{namespace} API shape, and on
// internal/sdn/client.go for the Go net/http client idiom (cloned default
// transport, context-scoped requests, structured slog warnings).
package originclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Origin is the registry's record of which URL currently serves a
// namespace.
type Origin struct {
	URL string `json:"url"`
}

// ApiError wraps a non-2xx HTTP response from the registry.
type ApiError struct {
	StatusCode int
	URL        string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("originclient: %s returned %d", e.URL, e.StatusCode)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the origin registry's base address, e.g. "https://origin.internal:8091".
	BaseURL string

	// TLSConfig is used for the underlying transport if set; nil means the
	// default transport (plain HTTP or system trust store HTTPS).
	TLSConfig *tls.Config

	// Timeout bounds each request. Defaults to 10s, matching the teacher's
	// sdn.Client default.
	Timeout time.Duration
}

// Client is a registry client. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSConfig != nil {
		transport.TLSClientConfig = cfg.TLSConfig
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: timeout},
	}
}

func (c *Client) originURL(namespace string) string {
	return fmt.Sprintf("%s/origin/%s", c.baseURL, url.PathEscape(namespace))
}

// GetOrigin returns the registry's entry for namespace, or (nil, nil) if
// none is registered. The result is returned verbatim: this client
// deliberately does not reinterpret or rewrite the returned URL (see
// DESIGN.md, Open Question resolution #2).
func (c *Client) GetOrigin(ctx context.Context, namespace string) (*Origin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.originURL(namespace), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ApiError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	var origin Origin
	if err := json.NewDecoder(resp.Body).Decode(&origin); err != nil {
		return nil, fmt.Errorf("originclient: decode response: %w", err)
	}
	return &origin, nil
}

// SetOrigin registers namespace as served by origin.URL.
func (c *Client) SetOrigin(ctx context.Context, namespace string, origin Origin) error {
	return c.send(ctx, http.MethodPost, namespace, &origin)
}

// PatchOrigin refreshes namespace's registered entry with an HTTP PATCH.
func (c *Client) PatchOrigin(ctx context.Context, namespace string, origin Origin) error {
	return c.send(ctx, http.MethodPatch, namespace, &origin)
}

// DeleteOrigin removes namespace's registered entry.
func (c *Client) DeleteOrigin(ctx context.Context, namespace string) error {
	return c.send(ctx, http.MethodDelete, namespace, nil)
}

func (c *Client) send(ctx context.Context, method, namespace string, body *Origin) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.originURL(namespace), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ApiError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}
	return nil
}
