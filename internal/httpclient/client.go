// Package httpclient provides a rate-limited, retrying HTTP client.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cesargomez89/mias/internal/constants"
)

// Client wraps an http.Client to provide rate limiting and automatic retries.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	retryCount int
	retryBase  time.Duration

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewClient creates a new rate-limited, retrying HTTP client. A
// minRequestInterval of zero disables rate limiting.
func NewClient(httpClient *http.Client, minRequestInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	limit := rate.Inf
	if minRequestInterval > 0 {
		limit = rate.Every(minRequestInterval)
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		retryCount: constants.DefaultRetryCount,
		retryBase:  constants.DefaultRetryBase,
	}
}

// SetRetry overrides the number of attempts and the linear backoff base.
func (c *Client) SetRetry(count int, base time.Duration) {
	if count < 1 {
		count = 1
	}
	c.retryCount = count
	c.retryBase = base
}

// Do executes an HTTP request with rate-limiting and retries. Network
// errors, 429 and 503 are retried; a Retry-After header delays every
// caller sharing the client, not only this request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req.WithContext(ctx))
		backoff := time.Duration(attempt+1) * c.retryBase
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (status %d)", resp.StatusCode)

			if retryAfter > 0 {
				c.pause(retryAfter)
			}
			backoff = max(backoff, retryAfter)
		default:
			return resp, nil
		}

		if attempt == c.retryCount-1 {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetUnderlyingClient returns the underlying *http.Client.
func (c *Client) GetUnderlyingClient() *http.Client {
	return c.httpClient
}

func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	until := c.pausedUntil
	c.mu.Unlock()
	if d := time.Until(until); d > 0 {
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) pause(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next := time.Now().Add(d); c.pausedUntil.Before(next) {
		c.pausedUntil = next
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
