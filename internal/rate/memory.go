package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: misma ventana fija que RedisLimiter pero in-process,
// para despliegues sin redis. El janitor de go-cache limpia ventanas viejas.
type MemoryLimiter struct {
	c      *gocache.Cache
	Max    int64
	Window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		Max:    int64(max),
		Window: window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	if err := l.c.Add(k, int64(1), l.Window); err != nil {
		// ya existía: incrementar
		if _, err := l.c.IncrementInt64(k, 1); err != nil {
			// expiró entre medio; reintentar como primera
			l.c.Set(k, int64(1), l.Window)
		}
	}
	var hits int64 = 1
	if v, ok := l.c.Get(k); ok {
		if n, ok := v.(int64); ok {
			hits = n
		}
	}

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: hits}
	if !allowed {
		res.RetryAfter = winStart.Add(l.Window).Sub(now)
	}
	return res, nil
}
