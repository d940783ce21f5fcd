package birdeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"walletflow/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			TimeWindow:      "1W",
			TopGainersLimit: 30,
		},
		Source: config.SourceConfig{
			BaseURL:  baseURL,
			Chain:    "solana",
			APIKey:   "test-key",
			Timeout:  time.Second,
			PageSize: 10,
		},
		Reader: config.ReaderConfig{
			RateLimit: config.RateLimitConfig{
				MinCallInterval: time.Millisecond,
				MaxBackoff:      4 * time.Millisecond,
			},
			Retry: config.RetryConfig{
				MaxAttempts: 3,
				Pause:       time.Millisecond,
			},
		},
	}
}

func TestBackoffDoublingAndCap(t *testing.T) {
	c := NewClient(testConfig("http://example.invalid"))
	ctx := context.Background()

	if got := c.Backoff(); got != time.Millisecond {
		t.Fatalf("initial backoff = %s, want 1ms", got)
	}

	c.handleRateLimit(ctx, "gainers_losers")
	if got := c.Backoff(); got != 2*time.Millisecond {
		t.Fatalf("backoff after first 429 = %s, want 2ms", got)
	}

	c.handleRateLimit(ctx, "gainers_losers")
	c.handleRateLimit(ctx, "gainers_losers")
	if got := c.Backoff(); got != 4*time.Millisecond {
		t.Fatalf("backoff not capped: %s, want 4ms", got)
	}

	c.resetBackoff()
	if got := c.Backoff(); got != time.Millisecond {
		t.Fatalf("backoff not reset: %s, want 1ms", got)
	}
}

func TestRateLimitRetriesDoNotConsumeAttempts(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		// More 429s than the transient attempt cap, then success.
		if n <= 4 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"success": true, "data": {"wallet": "W1", "items": [{"symbol": "XYZ", "valueUsd": 15000000}]}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	items, err := c.WalletTokenList(context.Background(), "W1")
	if err != nil {
		t.Fatalf("expected success after rate limit retries, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(items))
	}
	if got := atomic.LoadInt64(&calls); got != 5 {
		t.Fatalf("expected 5 calls, got %d", got)
	}
	if got := c.Backoff(); got != time.Millisecond {
		t.Fatalf("backoff not reset after success: %s", got)
	}
}

func TestTransientRetryExhaustion(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.WalletTokenList(context.Background(), "W1")
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %T: %v", err, err)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("expected exactly max_attempts calls, got %d", got)
	}
}

func TestFatalResponseNotRetried(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{"success": false, "message": "invalid wallet"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.WalletTokenList(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error for success=false response")
	}
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %T: %v", err, err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestRequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing API key header")
		}
		if r.Header.Get("x-chain") != "solana" {
			t.Errorf("missing chain header")
		}
		w.Write([]byte(`{"success": true, "data": {"items": []}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.WalletTokenList(context.Background(), "W1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
