package ports

import (
	"context"
	"time"
)

// CounterStore backs the fixed-window rate limiter. Incr creates the counter
// on first use in a window, resets it when the stored window has expired, and
// otherwise increments. The read-modify-write must be atomic relative to
// concurrent callers sharing the same key.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}
