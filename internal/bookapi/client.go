// Package bookapi is an HTTP client for the remote book storage service.
package bookapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookcatalog/internal/id"
	"github.com/listenupapp/bookcatalog/internal/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultBaseURL is the hosted book service the catalog was built against.
	DefaultBaseURL = "https://mongodbapi-w61d.onrender.com/api"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "bookcatalog/1.0"

	// AuthHeader carries the opaque session token on mutating requests.
	AuthHeader = "auth-token"
	// RequestIDHeader correlates client logs with service logs.
	RequestIDHeader = "X-Request-ID"
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	UserAgent         string
	ProxyAddr         string // optional SOCKS5 proxy, host:port
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables pacing
	Burst             int
}

// Client is a rate-limited book service client.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
	baseURL   string
	host      string
	userAgent string
}

// New creates a book service client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transport, err := newTransport(cfg.ProxyAddr)
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter:   ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		logger:    logger,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		host:      u.Host,
		userAgent: cfg.UserAgent,
	}, nil
}

// BaseURL returns the service root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes a single call to the book service.
type request struct {
	body   any
	method string
	path   string
	token  string
}

// doRequest executes a request with rate limiting and returns the body of a 2xx reply.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrTransport, err)
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID, err := id.Generate("req")
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set(AuthHeader, r.token)
	}

	c.logger.Debug("book service request",
		"method", r.method,
		"path", r.path,
		"request_id", requestID,
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	c.logger.Debug("book service response",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode:    resp.StatusCode,
			ServerMessage: serverMessage(respBody),
		}
	}

	return respBody, nil
}

// serverMessage extracts the "error" field from a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func bookPath(bookID string) string {
	return "/books/" + url.PathEscape(bookID)
}
