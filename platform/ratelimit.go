/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"golang.org/x/time/rate"
)

// defaultRPS and defaultBurst are the steady-state token-bucket parameters
// applied before any GitHub rate-limit response has been observed.
const (
	defaultRPS   = rate.Limit(10)
	defaultBurst = 20

	// lowWaterPercent is the fraction of the GitHub quota remaining below
	// which the limiter halves its rate, per the outbound throttling rule.
	lowWaterPercent = 0.10
)

// RateLimiter throttles outbound platform calls with a token bucket whose
// rate is adjusted from the X-RateLimit-Remaining/X-RateLimit-Limit headers
// GitHub returns on every response.
type RateLimiter struct {
	limiter *rate.Limiter

	mu     sync.Mutex
	halved bool
}

// NewRateLimiter constructs a limiter seeded at the default rate.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(defaultRPS, defaultBurst),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Observe adjusts the bucket's rate from a GitHub rate-limit response,
// halving the rate when remaining quota drops below the low-water mark and
// restoring the default rate once quota recovers above it.
func (l *RateLimiter) Observe(ctx context.Context, r github.Rate) {
	if r.Limit == 0 {
		return
	}
	ratio := float64(r.Remaining) / float64(r.Limit)

	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case ratio < lowWaterPercent && !l.halved:
		l.limiter.SetLimit(defaultRPS / 2)
		l.limiter.SetBurst(defaultBurst / 2)
		l.halved = true
		clog.FromContext(ctx).Warnf("github rate limit at %.0f%%, halving outbound rate to %.1f rps", ratio*100, float64(defaultRPS)/2)
	case ratio >= lowWaterPercent && l.halved:
		l.limiter.SetLimit(defaultRPS)
		l.limiter.SetBurst(defaultBurst)
		l.halved = false
		clog.FromContext(ctx).Infof("github rate limit recovered to %.0f%%, restoring outbound rate to %.1f rps", ratio*100, float64(defaultRPS))
	}
}
