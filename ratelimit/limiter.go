package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/redis"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the window admits another request. Zero
	// when Allowed.
	RetryAfter time.Duration
	// Degraded is set when the decision came from the in-process fallback.
	Degraded bool
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// SlidingWindow is a Limiter backed by Redis with an in-process fallback.
type SlidingWindow struct {
	client   *redis.Client
	limit    int
	window   time.Duration
	fallback *memoryWindow
	log      *logger.Logger
	now      func() time.Time
}

var _ Limiter = (*SlidingWindow)(nil)

// New creates a limiter. A nil client uses the in-process window only.
func New(cfg Config, client *redis.Client, log *logger.Logger) *SlidingWindow {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.WithComponent("ratelimit")
	}
	window := cfg.WindowDuration()
	return &SlidingWindow{
		client:   client,
		limit:    cfg.Limit,
		window:   window,
		fallback: newMemoryWindow(cfg.Limit, window),
		log:      log,
		now:      time.Now,
	}
}

// Allow records the request and reports whether it is within the limit.
func (s *SlidingWindow) Allow(ctx context.Context, key string) Decision {
	now := s.now()
	if s.client != nil {
		d, err := s.allowRedis(ctx, key, now)
		if err == nil {
			return d
		}
		s.log.Warn("Rate limiter degraded to in-process window", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	d := s.fallback.allow(key, now)
	d.Degraded = s.client != nil
	return d
}

func (s *SlidingWindow) allowRedis(ctx context.Context, key string, now time.Time) (Decision, error) {
	rkey := s.client.Key("ratelimit", key)
	nowMs := now.UnixMilli()
	cutoff := nowMs - s.window.Milliseconds()

	var card *goredis.IntCmd
	var oldest *goredis.ZSliceCmd
	_, err := s.client.Unwrap().TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, rkey, "-inf", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, rkey, goredis.Z{Score: float64(nowMs), Member: strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()})
		card = pipe.ZCard(ctx, rkey)
		oldest = pipe.ZRangeWithScores(ctx, rkey, 0, 0)
		pipe.PExpire(ctx, rkey, s.window)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(card.Val())
	d := Decision{Allowed: count <= s.limit, Limit: s.limit, Remaining: max(0, s.limit-count)}
	if !d.Allowed {
		d.RetryAfter = s.window
		if z := oldest.Val(); len(z) > 0 {
			d.RetryAfter = time.Duration(int64(z[0].Score)+s.window.Milliseconds()-nowMs) * time.Millisecond
		}
	}
	return d, nil
}

// memoryWindow is the in-process sliding window. Only admitted requests are
// recorded.
type memoryWindow struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

func newMemoryWindow(limit int, window time.Duration) *memoryWindow {
	return &memoryWindow{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (m *memoryWindow) allow(key string, now time.Time) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.window)
	if now.Sub(m.lastSweep) > m.window {
		m.sweep(cutoff)
		m.lastSweep = now
	}

	valid := filterByTime(m.requests[key], cutoff)
	if len(valid) >= m.limit {
		m.requests[key] = valid
		return Decision{Limit: m.limit, RetryAfter: valid[0].Sub(cutoff)}
	}
	m.requests[key] = append(valid, now)
	return Decision{Allowed: true, Limit: m.limit, Remaining: m.limit - len(valid) - 1}
}

func (m *memoryWindow) sweep(cutoff time.Time) {
	for key, times := range m.requests {
		valid := filterByTime(times, cutoff)
		if len(valid) == 0 {
			delete(m.requests, key)
		} else {
			m.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
