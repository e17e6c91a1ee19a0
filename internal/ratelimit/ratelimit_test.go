package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLimiter returns a limiter whose clock only moves when advanced.
func newTestLimiter(t *testing.T, cfg Config) (*Limiter, func(time.Duration)) {
	t.Helper()
	l, err := New(cfg)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Limit: 0, Window: time.Minute})
	assert.Error(t, err)

	_, err = New(Config{Limit: 10, Window: 0})
	assert.Error(t, err)
}

func TestAllow_Burst(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultConfig())

	for i := range 100 {
		require.True(t, l.Allow("10.0.0.1"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("10.0.0.1"), "101st request within the window should be limited")
}

func TestAllow_PerCaller(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 2, Window: time.Minute})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "other callers keep their own budget")
	assert.Equal(t, 2, l.Len())
}

func TestAllow_SlidingWindow(t *testing.T) {
	l, advance := newTestLimiter(t, Config{Limit: 4, Window: time.Minute})

	for range 4 {
		require.True(t, l.Allow("a"))
		advance(10 * time.Second)
	}
	// t=40s: all four requests are still inside the window
	require.False(t, l.Allow("a"))

	advance(20 * time.Second)
	// t=60s: the request from t=0 has left the window
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	advance(2 * time.Minute)
	for range 4 {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))
}

func TestAllow_SpreadRequestsStayWithinLimit(t *testing.T) {
	l, advance := newTestLimiter(t, DefaultConfig())

	// 101 requests evenly spread over 59 seconds
	limited := 0
	for i := range 101 {
		if !l.Allow("1.2.3.4") {
			limited++
		}
		if i < 100 {
			advance(590 * time.Millisecond)
		}
	}
	assert.Equal(t, 1, limited)
}

func TestAllow_SteadyTrafficOverOneWindow(t *testing.T) {
	l, advance := newTestLimiter(t, DefaultConfig())

	allowed := 0
	for range 6000 {
		if l.Allow("1.2.3.4") {
			allowed++
		}
		advance(10 * time.Millisecond)
	}
	assert.Equal(t, 100, allowed, "a caller never exceeds the limit inside one window")
}

func TestAllow_EvictsIdleCallers(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 1, Window: time.Minute, MaxKeys: 2})

	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	l.Allow("b")
	l.Allow("c") // evicts a

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Allow("a"), "evicted caller starts with a fresh budget")
}
