package birdeye

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"walletflow/config"
	"walletflow/logger"
)

// Client wraps outbound calls to the Birdeye public API with pacing and
// adaptive backoff. A rate.Limiter enforces the minimum inter-call interval;
// on 429 the interval doubles (capped at the configured maximum) until the
// next successful call narrows it back down.
type Client struct {
	config     *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log

	mu      sync.Mutex
	backoff time.Duration
}

// NewClient creates a Birdeye API client from the source and reader sections
// of the configuration.
func NewClient(cfg *config.Config) *Client {
	minInterval := cfg.Reader.RateLimit.MinCallInterval

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Source.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     logger.GetLogger(),
		backoff: minInterval,
	}
}

// Backoff returns the current backoff interval.
func (c *Client) Backoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff
}

// get performs a single paced request against the given endpoint and returns
// the raw body. Outcomes are classified into the fetch error taxonomy; the
// caller owns decoding and the retry policy.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.config.Source.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FatalError{Endpoint: endpoint, Reason: err.Error()}
	}
	req.Header.Set("X-API-KEY", c.config.Source.APIKey)
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-chain", c.config.Source.Chain)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(c.log.WithComponent("birdeye_reader"), "birdeye_reader", "api_request", time.Since(start), logger.Fields{
		"endpoint": endpoint,
	})

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, c.handleRateLimit(ctx, endpoint)
	case resp.StatusCode >= 500:
		return nil, &TransientError{Endpoint: endpoint, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &FatalError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}

	c.resetBackoff()
	return body, nil
}

// handleRateLimit doubles the backoff interval, widens the limiter to match
// and sleeps the full doubled interval before returning, so the caller can
// retry immediately.
func (c *Client) handleRateLimit(ctx context.Context, endpoint string) error {
	c.mu.Lock()
	c.backoff *= 2
	if max := c.config.Reader.RateLimit.MaxBackoff; c.backoff > max {
		c.backoff = max
	}
	backoff := c.backoff
	c.mu.Unlock()

	c.limiter.SetLimit(rate.Every(backoff))
	logger.IncrementRateLimitHit(endpoint)
	c.log.WithComponent("birdeye_reader").WithFields(logger.Fields{
		"endpoint": endpoint,
		"backoff":  backoff.String(),
	}).Warn("rate limited, increasing backoff")

	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
	return &RateLimitError{Endpoint: endpoint, Backoff: backoff}
}

// resetBackoff narrows the limiter back to the configured minimum after a
// successful call.
func (c *Client) resetBackoff() {
	minInterval := c.config.Reader.RateLimit.MinCallInterval

	c.mu.Lock()
	changed := c.backoff != minInterval
	c.backoff = minInterval
	c.mu.Unlock()

	if changed {
		c.limiter.SetLimit(rate.Every(minInterval))
		c.log.WithComponent("birdeye_reader").Debug("backoff reset after successful call")
	}
}

// withRetries runs fn until it succeeds, fails fatally, or exhausts the
// configured transient attempts. Rate limited calls retry without consuming
// an attempt; the backoff sleep already happened inside get.
func (c *Client) withRetries(ctx context.Context, endpoint string, fn func() error) error {
	attempts := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if IsRateLimit(err) {
			continue
		}
		if IsFatal(err) {
			return err
		}

		attempts++
		if attempts >= c.config.Reader.Retry.MaxAttempts {
			c.log.WithComponent("birdeye_reader").WithError(err).WithFields(logger.Fields{
				"endpoint": endpoint,
				"attempts": attempts,
			}).Error("max retries reached")
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.config.Reader.Retry.Pause):
		}
	}
}
