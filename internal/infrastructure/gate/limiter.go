package gate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one limiter hit.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter counts hits per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a sliding-window log shared by all API replicas.
// Each allowed hit is a sorted-set member scored by its time in milliseconds.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int64
	window    time.Duration
	now       func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter allowing limit hits in any window.
func NewRedisLimiter(client redis.Cmdable, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "threadline:ratelimit:"
	}
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     int64(limit),
		window:    window,
		now:       time.Now,
	}
}

// Allow records a hit for key and reports whether the window still has room.
// A rejected hit is not kept in the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	fullKey := l.keyPrefix + key
	now := l.now()
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "-inf", strconv.FormatInt(nowMs-l.window.Milliseconds(), 10))
		pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(nowMs), Member: member})
		card = pipe.ZCard(ctx, fullKey)
		oldest = pipe.ZRangeWithScores(ctx, fullKey, 0, 0)
		pipe.PExpire(ctx, fullKey, l.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to record hit: %w", err)
	}

	count := card.Val()
	decision := Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
	}
	if decision.Allowed {
		return decision, nil
	}

	if remErr := l.client.ZRem(ctx, fullKey, member).Err(); remErr != nil {
		return Decision{}, fmt.Errorf("failed to drop rejected hit: %w", remErr)
	}

	decision.RetryAfter = l.window
	if first := oldest.Val(); len(first) > 0 {
		expires := time.UnixMilli(int64(first[0].Score)).Add(l.window)
		if wait := expires.Sub(now); wait > 0 && wait < l.window {
			decision.RetryAfter = wait
		}
	}
	return decision, nil
}

// LocalLimiter is a per-process token bucket per key. Used when Redis is not configured.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    int
	every    rate.Limit
}

// NewLocalLimiter allows limit hits per window, refilling evenly.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		every:    rate.Every(window / time.Duration(max(limit, 1))),
	}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.every, l.limit)
	l.limiters[key] = lim
	return lim
}

// Allow takes one token for key.
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	lim := l.get(key)
	now := time.Now()

	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{Allowed: false, Limit: int64(l.limit)}, nil
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{Allowed: false, Limit: int64(l.limit), RetryAfter: delay}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     int64(l.limit),
		Remaining: int64(lim.TokensAt(now)),
	}, nil
}
