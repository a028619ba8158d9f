package ratelimit

import (
	"context"
	"testing"

	"github.com/partyquiz/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	cfg := &config.Config{RateLimitWsCommands: "5-M"}
	rl, err := NewRateLimiter(cfg)
	require.NoError(t, err)
	assert.NotNil(t, rl)
}

func TestNewRateLimiter_InvalidRate(t *testing.T) {
	cfg := &config.Config{RateLimitWsCommands: "not-a-rate"}
	_, err := NewRateLimiter(cfg)
	assert.Error(t, err)
}

func TestAllowCommand_WithinLimit(t *testing.T) {
	cfg := &config.Config{RateLimitWsCommands: "5-M"}
	rl, err := NewRateLimiter(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, rl.AllowCommand(ctx, "conn-1", "submit_answer"))
	}
}

func TestAllowCommand_ExceedsLimit(t *testing.T) {
	cfg := &config.Config{RateLimitWsCommands: "3-M"}
	rl, err := NewRateLimiter(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowCommand(ctx, "conn-2", "submit_answer"))
	}

	assert.False(t, rl.AllowCommand(ctx, "conn-2", "submit_answer"))
}

func TestAllowCommand_IsolatedPerConnection(t *testing.T) {
	cfg := &config.Config{RateLimitWsCommands: "1-M"}
	rl, err := NewRateLimiter(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, rl.AllowCommand(ctx, "conn-a", "join_room"))
	assert.False(t, rl.AllowCommand(ctx, "conn-a", "join_room"))

	// A distinct connection has its own bucket.
	assert.True(t, rl.AllowCommand(ctx, "conn-b", "join_room"))
}
