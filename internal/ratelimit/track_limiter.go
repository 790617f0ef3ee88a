package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/referra/internal/config"
)

const keyTrackClickIP = "track:click:ip:%s"

// TrackLimiter throttles the public click tracking endpoint per client IP.
// It is disabled when no redis address is configured.
type TrackLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewTrackLimiter(cfg config.Config, bucket *TokenBucket) *TrackLimiter {
	if bucket == nil || cfg.TrackClicksPerMinute <= 0 {
		return nil
	}
	return &TrackLimiter{
		enabled: true,
		bucket:  bucket,
		rate:    float64(cfg.TrackClicksPerMinute) / 60,
		burst:   cfg.TrackClicksPerMinute,
	}
}

func (l *TrackLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TrackLimiter) AllowClick(ctx context.Context, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyTrackClickIP, strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
