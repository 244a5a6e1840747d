package api

import (
	"context"
	"testing"
	"time"
)

func TestConsumeRateLimitDisabledCases(t *testing.T) {
	tests := []struct {
		name    string
		limiter *RedisRateLimiter
		scope   string
		subject string
		limit   int
		window  time.Duration
	}{
		{name: "nil limiter", limiter: nil, scope: "events", subject: "u1", limit: 10, window: time.Minute},
		{name: "nil client", limiter: NewRedisRateLimiter(nil, "refuel:rate_limit"), scope: "events", subject: "u1", limit: 10, window: time.Minute},
		{name: "zero limit", limiter: NewRedisRateLimiter(nil, ""), scope: "events", subject: "u1", limit: 0, window: time.Minute},
		{name: "empty subject", limiter: NewRedisRateLimiter(nil, ""), scope: "events", subject: "", limit: 10, window: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, retryAfter, err := tt.limiter.ConsumeRateLimit(context.Background(), tt.scope, tt.subject, tt.limit, tt.window)
			if err != nil {
				t.Fatalf("disabled limiter must not error: %v", err)
			}
			if count != 0 || retryAfter != 0 {
				t.Fatalf("disabled limiter must be a no-op, got count=%d retryAfter=%d", count, retryAfter)
			}
		})
	}
}

func TestNewRedisRateLimiterNormalizesPrefix(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, "  custom:prefix:  ")
	if limiter.prefix != "custom:prefix" {
		t.Fatalf("expected trimmed prefix without trailing colon, got %q", limiter.prefix)
	}

	limiter = NewRedisRateLimiter(nil, "")
	if limiter.prefix != "refuel:rate_limit" {
		t.Fatalf("expected default prefix, got %q", limiter.prefix)
	}
}
