// Package ratelimit provides request pacing using a token bucket algorithm.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// EUtils limits for clients without an API key: 3 requests/second.
// We target slightly under the limit to leave headroom for retries.
const (
	EUtilsRatePerSec    = 2.5
	EUtilsBurstCapacity = 3.0
)

// Limiter implements a token bucket rate limiter. It allows bursts up to
// the bucket capacity, then refills at a fixed rate.
type Limiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// New creates a limiter adding tokensPerSecond tokens up to burstSize.
// The bucket starts full.
func New(tokensPerSecond, burstSize float64) *Limiter {
	return &Limiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
	}
}

// NewEUtilsLimiter creates a limiter sized for the Entrez EUtils service.
// NCBI enforces 3 requests/second for unauthenticated clients and blocks
// addresses that exceed it, so every efetch call must pass through this.
func NewEUtilsLimiter() *Limiter {
	return New(EUtilsRatePerSec, EUtilsBurstCapacity)
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.timeUntilNextToken()):
		}
	}
}

// tryAcquire consumes one token without blocking, refilling first.
func (l *Limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}

// timeUntilNextToken returns how long until one full token accumulates.
func (l *Limiter) timeUntilNextToken() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	needed := 1.0 - l.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / l.refillRate * float64(time.Second))
}

// Tokens returns the current token count after refill. Intended for tests.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := l.tokens + time.Since(l.lastRefill).Seconds()*l.refillRate
	if tokens > l.maxTokens {
		tokens = l.maxTokens
	}
	return tokens
}
