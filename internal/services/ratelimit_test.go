package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(start time.Time) (*MemorySearchLimiter, *time.Time) {
	now := start
	l := NewMemorySearchLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiterAllowsFiveThenRejects(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < SearchRateLimit; i++ {
		require.True(t, l.Allow(ctx, "203.0.113.7"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(ctx, "203.0.113.7"))
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l, now := newTestLimiter(start)
	ctx := context.Background()

	// First request at t=0, four more at t=30m.
	require.True(t, l.Allow(ctx, "c"))
	*now = start.Add(30 * time.Minute)
	for i := 0; i < SearchRateLimit-1; i++ {
		require.True(t, l.Allow(ctx, "c"))
	}
	require.False(t, l.Allow(ctx, "c"))

	// At t=61m the first timestamp has aged out; exactly one slot opens.
	*now = start.Add(61 * time.Minute)
	assert.True(t, l.Allow(ctx, "c"))
	assert.False(t, l.Allow(ctx, "c"))
}

func TestMemoryLimiterRejectionDoesNotRecord(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l, now := newTestLimiter(start)
	ctx := context.Background()

	for i := 0; i < SearchRateLimit; i++ {
		require.True(t, l.Allow(ctx, "c"))
	}
	// Hammering while limited must not extend the lockout.
	for i := 0; i < 20; i++ {
		require.False(t, l.Allow(ctx, "c"))
	}

	// All five allowed stamps were at t=0, so at t=61m all have aged out.
	*now = start.Add(61 * time.Minute)
	for i := 0; i < SearchRateLimit; i++ {
		assert.True(t, l.Allow(ctx, "c"), "slot %d should have reopened", i+1)
	}
	assert.False(t, l.Allow(ctx, "c"))
}

func TestMemoryLimiterClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < SearchRateLimit; i++ {
		require.True(t, l.Allow(ctx, "client-a"))
	}
	require.False(t, l.Allow(ctx, "client-a"))

	assert.True(t, l.Allow(ctx, "client-b"))
}

func TestMemoryLimiterConcurrentSameClient(t *testing.T) {
	l := NewMemorySearchLimiter()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "same") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Check-and-record is atomic per client: exactly the limit gets through.
	assert.Equal(t, SearchRateLimit, allowed)
}
