// Package ratelimit throttles inbound websocket commands per connected player.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/partyquiz/server/internal/config"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/metrics"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimiter throttles inbound websocket commands per connection.
//
// Rooms are single-process (no clustering), so a memory store is sufficient
// and avoids a Redis round trip on every command.
type RateLimiter struct {
	commands *limiter.Limiter
	store    limiter.Store
}

// NewRateLimiter builds a RateLimiter from the configured command rate.
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsCommands)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket command rate: %w", err)
	}

	store := memory.NewStore()

	return &RateLimiter{
		commands: limiter.New(store, rate),
		store:    store,
	}, nil
}

// AllowCommand reports whether the connection identified by connID may send
// another inbound command right now. A store failure fails open and logs,
// since a single dropped in-memory limiter check must never stall gameplay.
func (rl *RateLimiter) AllowCommand(ctx context.Context, connID string, action string) bool {
	ctx2, err := rl.commands.Get(ctx, connID)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed", zap.String("conn_id", connID), zap.Error(err))
		return true
	}

	if ctx2.Reached {
		metrics.RateLimitExceeded.WithLabelValues(action, "commands_per_connection").Inc()
		return false
	}

	return true
}
