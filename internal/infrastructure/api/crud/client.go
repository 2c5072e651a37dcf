// Package crud is a small JSON-over-HTTP client bound to one service.
package crud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
)

var _ output.CRUDPort = (*Client)(nil)

var (
	// ErrNotImplemented is returned by the verbs this client does not offer.
	ErrNotImplemented    = errors.New("method not implemented")
	ErrInvalidServiceURL = errors.New("invalid service url")
)

const defaultTimeout = 30 * time.Second

type ServiceConfig struct {
	ServiceURL string
	// Token is sent verbatim in the Authorization header when set.
	Token   string
	Timeout time.Duration
}

type Client struct {
	base   url.URL
	token  string
	http   *http.Client
	logger output.LoggerPort
}

func New(cfg ServiceConfig, logger output.LoggerPort) (*Client, error) {
	base, err := url.Parse(cfg.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and a host", ErrInvalidServiceURL, cfg.ServiceURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger = logger.Named("api").WithField("service", base.Host)

	return &Client{
		base:  url.URL{Scheme: base.Scheme, Host: base.Host},
		token: cfg.Token,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: &loggingTransport{base: http.DefaultTransport, logger: logger},
		},
		logger: logger,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, query)
}

// Post sends body encoded as JSON. A nil body sends no payload.
func (c *Client) Post(ctx context.Context, path string, body any, query url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body, query)
}

func (c *Client) Put(context.Context, string, any, url.Values) (*http.Response, error) {
	return nil, fmt.Errorf("%w: PUT", ErrNotImplemented)
}

func (c *Client) Patch(context.Context, string, any, url.Values) (*http.Response, error) {
	return nil, fmt.Errorf("%w: PATCH", ErrNotImplemented)
}

func (c *Client) Delete(context.Context, string, url.Values) (*http.Response, error) {
	return nil, fmt.Errorf("%w: DELETE", ErrNotImplemented)
}

// URL joins the service scheme and host with path. The path is taken
// literally, so it can never redirect the request to another host.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	return resp, nil
}
