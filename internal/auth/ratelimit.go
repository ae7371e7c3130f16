package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Requests  int           // Maximum requests
	Window    time.Duration // Time window
	BurstSize int           // Additional burst capacity
}

// Default rate limit configurations
var (
	RateLimitDefault = RateLimitConfig{Requests: 100, Window: time.Minute, BurstSize: 20}
	RateLimitAuth    = RateLimitConfig{Requests: 5, Window: time.Minute, BurstSize: 0} // Strict for login
	// Landing page hits and form posts from one address
	RateLimitLanding = RateLimitConfig{Requests: 30, Window: time.Minute, BurstSize: 10}
	// Progress callbacks arrive every few seconds per open player
	RateLimitTracking = RateLimitConfig{Requests: 120, Window: time.Minute, BurstSize: 30}
)

// Route groups with their own request windows
const (
	ScopeAuth     = "auth"
	ScopeLanding  = "landing"
	ScopeTracking = "tracking"
)

// slidingWindowScript removes entries older than the window, then admits
// the request only if the window still has room.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local burst = tonumber(ARGV[5])
	local member = ARGV[6]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current_count = redis.call('ZCARD', key)
	local total_allowed = max_requests + burst

	if current_count < total_allowed then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, total_allowed - current_count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = tonumber(oldest[2]) + window_ms - now
	end
	return {0, 0, retry_after}
`)

// RateLimiter implements sliding window rate limiting with Redis
type RateLimiter struct {
	redis     *redis.Client
	keyPrefix string
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		keyPrefix: "socialz:ratelimit:",
	}
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	ResetAfter time.Duration `json:"reset_after"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Limit      int           `json:"limit"`
	Window     time.Duration `json:"window"`
}

// Check performs a rate limit check using sliding window algorithm
func (r *RateLimiter) Check(ctx context.Context, identifier string, config RateLimitConfig) (*RateLimitResult, error) {
	key := r.keyPrefix + identifier
	now := time.Now()
	windowStart := now.Add(-config.Window)

	result, err := slidingWindowScript.Run(ctx, r.redis, []string{key},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		config.Requests,
		config.Window.Milliseconds(),
		config.BurstSize,
		uuid.New().String(),
	).Result()

	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values := result.([]interface{})
	allowed := values[0].(int64) == 1
	remaining := int(values[1].(int64))
	retryAfterMs := values[2].(int64)

	return &RateLimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAfter: config.Window,
		RetryAfter: time.Duration(retryAfterMs) * time.Millisecond,
		Limit:      config.Requests + config.BurstSize,
		Window:     config.Window,
	}, nil
}

// CheckIP rate limits an address within one route group
func (r *RateLimiter) CheckIP(ctx context.Context, scope, ip string, config RateLimitConfig) (*RateLimitResult, error) {
	return r.Check(ctx, ipKey(scope, ip), config)
}

// ClearIP forgets the requests an address made against a route group
func (r *RateLimiter) ClearIP(ctx context.Context, scope, ip string) error {
	return r.Reset(ctx, ipKey(scope, ip))
}

func ipKey(scope, ip string) string {
	return "ip:" + scope + ":" + ip
}

// SetRateLimitHeaders adds rate limit headers to HTTP response
func (r *RateLimiter) SetRateLimitHeaders(w http.ResponseWriter, result *RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds())+1, 10))
	}
}

// Reset clears rate limit for an identifier
func (r *RateLimiter) Reset(ctx context.Context, identifier string) error {
	return r.redis.Del(ctx, r.keyPrefix+identifier).Err()
}
