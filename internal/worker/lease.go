package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaseKey = "queue-service:reminder-tick-lease"

// TickLease guards the reminder scan so only one scan runs at a time. Within
// the process a mutex prevents tick overlap when a scan outlives the interval;
// across processes a Redis SET NX lease stops an accidentally duplicated
// instance from double-scanning. When Redis is unreachable the lease degrades
// to local-only, which is still correct under the single-process deployment.
type TickLease struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	mu     sync.Mutex
}

// NewTickLease creates a lease. The client may be nil for local-only operation.
func NewTickLease(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TickLease {
	if ttl <= 0 {
		ttl = 55 * time.Second
	}
	return &TickLease{client: client, ttl: ttl, logger: logger}
}

// Acquire attempts to take the lease. It returns a release func and whether the
// lease was won; a false return means another scan holds it and this tick
// should be skipped.
func (l *TickLease) Acquire(ctx context.Context) (func(), bool) {
	if !l.mu.TryLock() {
		return nil, false
	}

	if l.client == nil {
		return l.mu.Unlock, true
	}

	ok, err := l.client.SetNX(ctx, leaseKey, "held", l.ttl).Result()
	if err != nil {
		l.logger.Warn("reminder lease unavailable; continuing with local lock only", zap.Error(err))
		return l.mu.Unlock, true
	}
	if !ok {
		l.mu.Unlock()
		return nil, false
	}

	return func() {
		if err := l.client.Del(ctx, leaseKey).Err(); err != nil {
			l.logger.Warn("failed to release reminder lease; it will expire", zap.Error(err))
		}
		l.mu.Unlock()
	}, true
}
