// Package upstream wraps outbound provider calls with a circuit breaker, an
// optional rate limit, and request metrics. Calls are made exactly once.
package upstream

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

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 8 << 20

// Config configures a provider client.
type Config struct {
	// Name labels the provider in metrics and breaker state.
	Name      string
	Timeout   time.Duration
	UserAgent string
	// RatePerSecond limits outbound requests; zero disables limiting.
	RatePerSecond float64
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Defaults to 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration
}

// Client performs single-attempt HTTP calls for one provider.
type Client struct {
	name       string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
}

// New creates a provider client.
func New(cfg Config, metrics *observability.Metrics) *Client {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	c := &Client{
		name:       cfg.Name,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    metrics,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return c
}

// Name returns the provider label.
func (c *Client) Name() string {
	return c.name
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doJSON(req, out)
}

// PostFormJSON issues a form-encoded POST and decodes the JSON body into out.
func (c *Client) PostFormJSON(ctx context.Context, fullURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doJSON(req, out)
}

// PostJSON issues a JSON POST with extra headers and decodes the JSON body into out.
func (c *Client) PostJSON(ctx context.Context, fullURL string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamMalformed, c.name, err)
	}
	return nil
}

// do sends req once and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.UpstreamRequests.WithLabelValues(c.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %s: rate limit wait: %v", domain.ErrUpstreamUnavailable, c.name, err)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		}
		return body, nil
	})
	c.metrics.UpstreamDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		c.metrics.UpstreamRequests.WithLabelValues(c.name, outcome).Inc()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, c.name, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(c.name, "success").Inc()
	return result.([]byte), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
