// Package transport provides the outbound fetch capability consumed by the
// acquisition engine: rate-limited HTTP reads restricted to the legislation
// source hosts. Network failure and non-success status are ordinary data
// conditions here, never fatal.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher is the fetch capability the engine consumes. Implementations
// return the raw payload and status for an absolute URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Payload, error)
}

// Payload is the raw result of one fetch.
type Payload struct {
	URL        string
	StatusCode int
	Body       []byte
}

// OK reports whether the payload carries a success status.
func (payload *Payload) OK() bool {
	return payload.StatusCode >= 200 && payload.StatusCode < 300
}

// DefaultUserAgent is the User-Agent header sent with source requests.
const DefaultUserAgent = "statute-engine/1.0"

// DefaultRequestInterval is the minimum interval between requests to the
// source.
const DefaultRequestInterval = 1 * time.Second

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodyBytes caps the response body size read from the source.
const DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	// RateLimit is the minimum interval between HTTP requests.
	RateLimit time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// AllowedHosts restricts fetching to these hostnames. If empty, the
	// legislation.gov.uk hosts are allowed.
	AllowedHosts []string

	// MaxBodyBytes caps the bytes read from a response body.
	MaxBodyBytes int64

	// HTTPClient is the underlying HTTP client. If nil, a default client
	// with Timeout is used.
	HTTPClient HTTPClient
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		RateLimit:    DefaultRequestInterval,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		AllowedHosts: []string{"www.legislation.gov.uk", "legislation.gov.uk"},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Client is the default Fetcher over net/http with rate limiting and a host
// allow-list.
type Client struct {
	httpClient   HTTPClient
	userAgent    string
	allowedHosts map[string]bool
	maxBodyBytes int64
}

// NewClient creates a Client from the given configuration.
func NewClient(config ClientConfig) *Client {
	underlying := config.HTTPClient
	if underlying == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		underlying = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	rateLimit := config.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRequestInterval
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	hosts := config.AllowedHosts
	if len(hosts) == 0 {
		hosts = DefaultConfig().AllowedHosts
	}
	allowedHosts := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		allowedHosts[host] = true
	}

	maxBodyBytes := config.MaxBodyBytes
	if maxBodyBytes == 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &Client{
		httpClient:   NewRateLimitedHTTPClient(underlying, rateLimit),
		userAgent:    userAgent,
		allowedHosts: allowedHosts,
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch performs a GET against the given URL and returns the payload. A
// non-success status is returned as data, not as an error; errors are
// reserved for requests that could not be made or read at all.
func (client *Client) Fetch(ctx context.Context, rawURL string) (*Payload, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	if !client.allowedHosts[parsed.Hostname()] {
		return nil, fmt.Errorf("host %q is not an allowed legislation source", parsed.Hostname())
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("Accept", "application/xml, text/html, application/xhtml+xml")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, client.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}

	return &Payload{
		URL:        rawURL,
		StatusCode: response.StatusCode,
		Body:       body,
	}, nil
}
