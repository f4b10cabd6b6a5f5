package services

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SearchRateLimit is the number of searches allowed per client in one
	// rolling hour. The window slides continuously; it is not a fixed bucket.
	SearchRateLimit  = 5
	SearchRateWindow = time.Hour

	searchLimiterKeyPrefix = "search_rl:"
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 2 * time.Hour
)

// SearchLimiter gates donor searches per client identifier. Implementations
// are check-and-record: an allowed call consumes one slot, a rejected call
// consumes nothing.
type SearchLimiter interface {
	Allow(ctx context.Context, clientID string) bool
}

type clientWindow struct {
	mu      sync.Mutex
	stamps  []time.Time
	lastUse time.Time
}

// MemorySearchLimiter is the in-process sliding-window limiter. State is
// lost on restart, which is acceptable: the limiter is a deterrent, not a
// security boundary.
type MemorySearchLimiter struct {
	mu      sync.Mutex
	windows map[string]*clientWindow
	now     func() time.Time
	cleanup bool
}

func NewMemorySearchLimiter() *MemorySearchLimiter {
	return &MemorySearchLimiter{
		windows: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Allow prunes the client's window to the trailing hour, rejects when five
// entries remain, and records the call otherwise. Per-client locking keeps
// clients from blocking each other; the map lock is only held for lookup.
func (l *MemorySearchLimiter) Allow(_ context.Context, clientID string) bool {
	now := l.now()

	l.mu.Lock()
	l.startCleanupOnce()
	w, ok := l.windows[clientID]
	if !ok {
		w = &clientWindow{}
		l.windows[clientID] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUse = now

	cutoff := now.Add(-SearchRateWindow)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= SearchRateLimit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (l *MemorySearchLimiter) startCleanupOnce() {
	if l.cleanup {
		return
	}
	l.cleanup = true
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := l.now()
			for id, w := range l.windows {
				w.mu.Lock()
				idle := now.Sub(w.lastUse) > limiterIdleTTL
				w.mu.Unlock()
				if idle {
					delete(l.windows, id)
				}
			}
			l.mu.Unlock()
		}
	}()
}

// searchAllowScript implements the sliding window check-and-record as a
// single atomic Redis operation, so concurrent requests from one client
// cannot double-count.
var searchAllowScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], tonumber(ARGV[2]) * 2)
return 1
`)

// RedisSearchLimiter keeps per-client windows in Redis sorted sets so the
// limit holds across multiple instances. Fails open when Redis is down:
// searching degrades, availability does not.
type RedisSearchLimiter struct {
	client *redis.Client
}

func NewRedisSearchLimiter(client *redis.Client) *RedisSearchLimiter {
	return &RedisSearchLimiter{client: client}
}

func (l *RedisSearchLimiter) Allow(ctx context.Context, clientID string) bool {
	now := time.Now()
	res, err := searchAllowScript.Run(ctx, l.client,
		[]string{searchLimiterKeyPrefix + clientID},
		now.UnixMilli(),
		SearchRateWindow.Milliseconds(),
		SearchRateLimit,
		strconv.FormatInt(now.UnixNano(), 10),
	).Int()
	if err != nil {
		log.Printf("search rate limiter Redis error (allowing request): %v", err)
		return true
	}
	return res == 1
}
