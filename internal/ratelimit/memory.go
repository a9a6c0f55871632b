package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// Limiter is satisfied by both the Redis and the in-memory token buckets so
// the HTTP layer does not care which backend is configured.
type Limiter interface {
	Allow(ctx context.Context, subject string) (Decision, error)
}

type bucketState struct {
	tokens    float64
	timestamp int64 // unix milliseconds of the last refill
}

// MemoryTokenBucket is the single-process fallback used when no Redis
// address is configured. Refill math matches the Lua script exactly so
// swapping backends never changes observable behavior.
type MemoryTokenBucket struct {
	mu          sync.Mutex
	buckets     map[string]*bucketState
	capacity    int64
	refillPerMS float64
	idleMS      int64 // eviction horizon, matches the Redis key TTL
	lastSweep   int64
	now         func() time.Time
}

func NewMemoryTokenBucket(capacity int, window time.Duration) (*MemoryTokenBucket, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive")
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}

	windowMS := window.Milliseconds()
	if windowMS < 1 {
		windowMS = 1
	}

	return &MemoryTokenBucket{
		buckets:     map[string]*bucketState{},
		capacity:    int64(capacity),
		refillPerMS: float64(capacity) / float64(windowMS),
		idleMS:      2 * windowMS,
		now:         time.Now,
	}, nil
}

func (l *MemoryTokenBucket) Allow(_ context.Context, subject string) (Decision, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}

	nowMS := l.now().UTC().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(nowMS)

	state, ok := l.buckets[subject]
	if !ok {
		state = &bucketState{tokens: float64(l.capacity), timestamp: nowMS}
		l.buckets[subject] = state
	}

	elapsed := nowMS - state.timestamp
	if elapsed < 0 {
		elapsed = 0
	}
	state.tokens = math.Min(float64(l.capacity), state.tokens+float64(elapsed)*l.refillPerMS)
	state.timestamp = nowMS

	if state.tokens >= 1 {
		state.tokens--
		return Decision{Allowed: true, Remaining: int64(state.tokens)}, nil
	}

	retryAfterMS := math.Ceil((1 - state.tokens) / l.refillPerMS)
	return Decision{
		Allowed:    false,
		Remaining:  int64(state.tokens),
		RetryAfter: time.Duration(retryAfterMS) * time.Millisecond,
	}, nil
}

// sweep drops subjects idle past the eviction horizon, the in-process
// equivalent of the Redis key TTL. Runs at most once per horizon. Caller
// holds the lock.
func (l *MemoryTokenBucket) sweep(nowMS int64) {
	if nowMS-l.lastSweep < l.idleMS {
		return
	}
	l.lastSweep = nowMS
	for subject, state := range l.buckets {
		if nowMS-state.timestamp >= l.idleMS {
			delete(l.buckets, subject)
		}
	}
}
