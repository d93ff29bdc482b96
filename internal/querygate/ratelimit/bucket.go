package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket is the token bucket for one key. Capacity tokens are available up
// front and refill continuously at Capacity per minute.
type Bucket struct {
	Key      string
	Capacity int

	limiter *rate.Limiter
	now     func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func newBucket(key string, perMinute int, clock func() time.Time) *Bucket {
	return &Bucket{
		Key:      key,
		Capacity: perMinute,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:      clock,
		lastSeen: clock(),
	}
}

// take consumes one token if one is available at now. It never waits.
func (b *Bucket) take(now time.Time) bool {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// Tokens reports the tokens currently available.
func (b *Bucket) Tokens() float64 {
	return b.limiter.TokensAt(b.now())
}

// LastSeen is when the bucket was last checked.
func (b *Bucket) LastSeen() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}
