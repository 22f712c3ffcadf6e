package ratelimit

import (
	"sync"
	"time"
)

// bucketKey is a Key pinned to a specific wall-clock minute.
type bucketKey struct {
	key    string
	minute int64
}

// FixedWindowLimiter implements Limiter with a fixed per-minute counter,
// sharded across a small set of locks to reduce contention across unrelated
// keys. Entries for minute buckets that are no longer current are safe to
// evict at any time; eviction happens lazily whenever a shard is touched.
type FixedWindowLimiter struct {
	shards []shard
	nowFn  func() time.Time
}

type shard struct {
	mu     sync.Mutex
	counts map[bucketKey]int
	lastGC int64
}

const shardCount = 32

// NewFixedWindowLimiter constructs a FixedWindowLimiter.
func NewFixedWindowLimiter() *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		shards: make([]shard, shardCount),
		nowFn:  time.Now,
	}
	for i := range l.shards {
		l.shards[i].counts = make(map[bucketKey]int)
	}
	return l
}

func (l *FixedWindowLimiter) shardFor(s string) *shard {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return &l.shards[h%shardCount]
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(key Key, perMinute int) Result {
	now := l.nowFn()
	minute := now.Unix() / 60
	k := key.String()
	sh := l.shardFor(k)
	bk := bucketKey{key: k, minute: minute}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if minute != sh.lastGC {
		for existing := range sh.counts {
			if existing.minute != minute {
				delete(sh.counts, existing)
			}
		}
		sh.lastGC = minute
	}

	sh.counts[bk]++
	count := sh.counts[bk]

	if perMinute <= 0 || count <= perMinute {
		return Result{Allowed: true}
	}

	secondsToNextMinute := 60 - int(now.Unix()%60)
	return Result{Allowed: false, RetryAfter: secondsToNextMinute}
}

// Size returns the number of tracked (key, bucket) pairs across all shards.
// The forwarding pipeline reports it through the rate_limit_keys gauge.
func (l *FixedWindowLimiter) Size() int {
	total := 0
	for i := range l.shards {
		l.shards[i].mu.Lock()
		total += len(l.shards[i].counts)
		l.shards[i].mu.Unlock()
	}
	return total
}

var _ Limiter = (*FixedWindowLimiter)(nil)
