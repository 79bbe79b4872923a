// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ratelimit provides the token-bucket limiter shared by every LLM
// Gateway call (§4.5), and the exponential-backoff retry policy used by
// the gateway.
//
// Grounded on Gizzahub-gzh-cli-gitforge's pkg/ratelimit/ratelimit.go: the
// mutex-guarded remaining/reset bookkeeping and provider-header update
// shape are kept, adapted from a GitHub/GitLab-specific fixed-window
// counter into a generic refilling token bucket so it can sit in front of
// any provider, not just a git-forge API.
package ratelimit

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket is a token-bucket limiter: capacity tokens refill continuously at
// a fixed rate. Wait blocks until a token is available or ctx is done.
type Bucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	retryAfter time.Duration
}

// NewBucket creates a token bucket with the given capacity, refilling to
// full over refillPeriod.
func NewBucket(capacity int, refillPeriod time.Duration) *Bucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refillPeriod <= 0 {
		refillPeriod = time.Second
	}
	return &Bucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(capacity) / refillPeriod.Seconds(),
		lastRefill: time.Now(),
	}
}

func (b *Bucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Wait blocks until a token is available, consumes it, and returns. It
// returns ctx.Err() if the context is cancelled first.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.retryAfter > 0 {
			wait := b.retryAfter
			b.retryAfter = 0
			b.mu.Unlock()
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		b.refillLocked()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}

		deficit := 1 - b.tokens
		wait := time.Duration(deficit/b.refillRate*1000) * time.Millisecond
		b.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// UpdateFromHeaders lets a response's rate-limit headers tighten the
// bucket's pacing, same header set as the reference repo (GitHub/GitLab style)
// generalized to whatever the provider returns.
func (b *Bucket) UpdateFromHeaders(resp *http.Response) {
	if resp == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			b.retryAfter = time.Duration(secs) * time.Second
		}
	}
	for _, h := range []string{"X-RateLimit-Remaining", "RateLimit-Remaining"} {
		if v := resp.Header.Get(h); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				b.tokens = n
			}
			break
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff computes the LLM Gateway's retry delay (§4.5): base 1s, factor
// 2, jitter ±25%. attempt is zero-based (0 = first retry).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := time.Second * time.Duration(1<<uint(attempt))
	jitterFrac := (rand.Float64()*2 - 1) * 0.25 // -0.25..+0.25
	return base + time.Duration(float64(base)*jitterFrac)
}

// ShouldRetryStatus reports whether an HTTP status code from a provider
// response is retryable per §4.5/§7: network errors (caller checks
// separately), 429, and 500-504 are transient; everything else (including
// auth, other 4xx, and 5xx above 504) is not.
func ShouldRetryStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 504
}
