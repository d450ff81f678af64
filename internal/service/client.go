package service

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

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	Host       string
	Space      string
	Token      string
	Timeout    time.Duration
	RetryCount uint64
	RetryDelay time.Duration
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to the space-scoped Colony REST API with bearer authentication.
type Client struct {
	spaceURL   *url.URL
	http       *http.Client
	retryCount uint64
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient builds a client for cfg.Space on cfg.Host.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Space == "" {
		return nil, fmt.Errorf("space is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	base, err := url.Parse(strings.TrimSuffix(host, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	spaceURL := base.ResolveReference(&url.URL{Path: apiPath + "spaces/" + cfg.Space + "/"})
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		spaceURL: spaceURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
				Base:   transport,
			},
		},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}, nil
}

// URL resolves path against the space endpoint.
func (c *Client) URL(path string, query url.Values) string {
	u := c.spaceURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends a request and decodes the JSON response into out when out is non-nil. GET requests
// are retried on network errors and 5xx responses. Every failure is a remote call failure.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	target := c.URL(path, query)
	attempt := func(ctx context.Context) error {
		return c.send(ctx, method, target, payload, out)
	}
	var err error
	if method == http.MethodGet && c.retryCount > 0 {
		backoff := retry.WithMaxRetries(c.retryCount, retry.NewExponential(c.retryDelay))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if sendErr := attempt(ctx); sendErr != nil {
				if isTransient(sendErr) {
					return retry.RetryableError(sendErr)
				}
				return sendErr
			}
			return nil
		})
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		return domain.NewError(domain.ErrRemoteCallFailed, "", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("http", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.logger.Debug("http",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
