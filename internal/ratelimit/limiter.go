// Package ratelimit throttles API callers with one token bucket per remote
// address. Buckets for idle callers are dropped in the background.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	idleAfter     = 5 * time.Minute
	sweepInterval = 3 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed hands out one token bucket per key, typically a client IP.
type Keyed struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
	stop    chan struct{}
	once    sync.Once
}

// New allows rps requests per second with the given burst per key and starts
// the background sweeper. Callers should Close it when done.
func New(rps float64, burst int) *Keyed {
	k := &Keyed{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		stop:    make(chan struct{}),
	}
	go k.sweep()
	return k
}

// Allow reports whether the caller behind key may proceed, creating the
// key's bucket on first sight.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.rps, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = time.Now()
	k.mu.Unlock()

	return b.limiter.Allow()
}

// Close stops the background sweeper. Safe to call more than once.
func (k *Keyed) Close() {
	k.once.Do(func() { close(k.stop) })
}

func (k *Keyed) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			k.mu.Lock()
			for key, b := range k.buckets {
				if time.Since(b.lastSeen) >= idleAfter {
					delete(k.buckets, key)
				}
			}
			k.mu.Unlock()
		}
	}
}
