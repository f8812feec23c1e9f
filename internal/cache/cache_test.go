package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A nil client means redis is not configured. Every helper must degrade to a
// cache miss instead of panicking.
func TestNilClientDegradesToMiss(t *testing.T) {
	ctx := context.Background()

	_, ok := Get(ctx, nil, "catalog:x:y")
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		Set(ctx, nil, "catalog:x:y", "{}", time.Minute)
		Del(ctx, nil, "catalog:x:y")
		InvalidatePrefix(ctx, nil, "catalog:")
	})

	// Without redis the dedup fast path must let the event through so the
	// database unique constraint can decide.
	assert.True(t, SetNX(ctx, nil, "webhook:stripe:evt_1", time.Hour))
}

func TestNewWithoutAddr(t *testing.T) {
	assert.Nil(t, New(""))
}
