package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/testutil"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()
	cfg := RateLimitConfig{Requests: 2, Window: time.Minute, BurstSize: 1}

	for i := 0; i < 3; i++ {
		res, err := limiter.CheckIP(ctx, "landing", "198.51.100.1", cfg)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != 2-i {
			t.Fatalf("request %d: expected %d remaining, got %d", i, 2-i, res.Remaining)
		}
	}

	res, err := limiter.CheckIP(ctx, "landing", "198.51.100.1", cfg)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth request should be limited")
	}

	// Other addresses keep their own window
	res, err = limiter.CheckIP(ctx, "landing", "198.51.100.2", cfg)
	if err != nil || !res.Allowed {
		t.Fatalf("independent address limited: %+v %v", res, err)
	}

	if err := limiter.ClearIP(ctx, "landing", "198.51.100.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	res, err = limiter.CheckIP(ctx, "landing", "198.51.100.1", cfg)
	if err != nil || !res.Allowed {
		t.Fatalf("expected reset to clear the window: %+v %v", res, err)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, mr := testutil.NewRedis(t)
	limiter := NewRateLimiter(client)

	r := gin.New()
	r.GET("/x", RateLimitMiddleware(limiter, "landing", RateLimitConfig{Requests: 1, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w
	}

	if w := do(); w.Code != http.StatusNoContent || w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first request: %d %v", w.Code, w.Header())
	}
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" || w.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("expected Retry-After and X-RateLimit-Reset headers, got %v", w.Header())
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected no remaining requests, got %q", w.Header().Get("X-RateLimit-Remaining"))
	}

	// Redis outage fails open
	mr.Close()
	if w := do(); w.Code != http.StatusNoContent {
		t.Fatalf("expected fail-open, got %d", w.Code)
	}
}
