// Package ratelimit limits requests per caller.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Config holds rate limiting configuration
type Config struct {
	// Limit is the number of requests one caller may make in any Window.
	Limit int
	// Window is the length of the sliding window.
	Window time.Duration
	// MaxKeys bounds how many callers are tracked; idle callers are evicted first.
	MaxKeys int
}

// DefaultConfig returns 100 requests per minute per caller.
func DefaultConfig() Config {
	return Config{
		Limit:   100,
		Window:  time.Minute,
		MaxKeys: 4096,
	}
}

// slidingWindow holds the admitted request times of one caller.
type slidingWindow struct {
	mu       sync.Mutex
	requests []time.Time
}

// admit drops requests older than window and records now when fewer than
// limit remain.
func (sw *slidingWindow) admit(now time.Time, window time.Duration, limit int) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := now.Add(-window)
	kept := sw.requests[:0]
	for _, t := range sw.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	sw.requests = kept

	if len(sw.requests) >= limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Limiter keeps one sliding window per caller key. Rejected requests are
// not recorded, so a throttled caller recovers once its oldest admitted
// request leaves the window.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	windows *lru.Cache[string, *slidingWindow]
	now     func() time.Time
}

// New creates a Limiter.
func New(cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %s", cfg.Limit, cfg.Window)
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultConfig().MaxKeys
	}
	cache, err := lru.New[string, *slidingWindow](cfg.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	return &Limiter{cfg: cfg, windows: cache, now: time.Now}, nil
}

// Allow reports whether the caller identified by key may proceed, recording
// the request when it may.
func (l *Limiter) Allow(key string) bool {
	return l.windowFor(key).admit(l.now(), l.cfg.Window, l.cfg.Limit)
}

func (l *Limiter) windowFor(key string) *slidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sw, ok := l.windows.Get(key); ok {
		return sw
	}
	sw := &slidingWindow{requests: make([]time.Time, 0, l.cfg.Limit)}
	l.windows.Add(key, sw)
	return sw
}

// Window returns the sliding window length.
func (l *Limiter) Window() time.Duration {
	return l.cfg.Window
}

// Len returns the number of tracked callers.
func (l *Limiter) Len() int {
	return l.windows.Len()
}
