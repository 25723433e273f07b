package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithClock(WithSuppressHeader(context.Background()), func() time.Time { return fixed })

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := range numGoroutines {
		wg.Go(func() {
			assert.True(t, shouldSuppressHeader(ctx), "Goroutine %d: shouldSuppressHeader should be true", i)
			assert.Equal(t, fixed, nowFrom(ctx), "Goroutine %d: clock should be pinned", i)
		})
	}
	wg.Wait()
}

// TestContextDefaults tests the behavior of an empty context.
func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	assert.False(t, shouldSuppressHeader(ctx))

	before := time.Now().UTC()
	now := nowFrom(ctx)
	assert.False(t, now.Before(before.Add(-time.Second)))
	assert.Equal(t, time.UTC, now.Location())
}

// TestContextClockIsUTC tests that a pinned clock is normalized to UTC.
func TestContextClockIsUTC(t *testing.T) {
	loc := time.FixedZone("GMT-5", -5*3600)
	local := time.Date(2025, 6, 1, 22, 0, 0, 0, loc)
	ctx := WithClock(context.Background(), func() time.Time { return local })

	now := nowFrom(ctx)
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, 2, now.Day())
}
