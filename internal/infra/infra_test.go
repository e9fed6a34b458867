package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("expected first two tokens to be available")
	}
	if rl.Allow() {
		t.Error("expected third call to be limited")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	if !rl.Allow() {
		t.Fatal("expected initial token")
	}
	if rl.Allow() {
		t.Fatal("expected bucket to be empty")
	}
	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected token after refill window")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}
	var nilLimiter *RateLimiter
	if err := nilLimiter.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait = %v", err)
	}
}

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		if r.Header.Get("X-Test") != "1" {
			t.Error("custom header not forwarded")
		}
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"ok":true}`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	body, status, err := DoGet(context.Background(), srv.Client(), srv.URL+"/ok", map[string]string{"X-Test": "1"})
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	if status != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("DoGet = %d %q", status, body)
	}

	_, status, err = DoGet(context.Background(), srv.Client(), srv.URL+"/missing", map[string]string{"X-Test": "1"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if status != http.StatusNotFound || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, HTTPError.StatusCode = %d", status, httpErr.StatusCode)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient(5*time.Second, "http://proxy.local:3128")
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}
	if _, err := NewHTTPClient(0, "://bad"); err == nil {
		t.Error("expected error for malformed proxy")
	}
}
