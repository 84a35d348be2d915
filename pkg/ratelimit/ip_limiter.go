package ratelimit

import (
	"sync"
	"time"
)

// IPLimiter keeps a token bucket per client IP and evicts idle entries
type IPLimiter struct {
	buckets    map[string]*ipBucket
	capacity   float64
	refillRate float64
	idleExpiry time.Duration
	mutex      sync.Mutex
}

type ipBucket struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// NewIPLimiter creates a per-IP limiter; buckets idle longer than idleExpiry are dropped
func NewIPLimiter(capacity, refillRate float64, idleExpiry time.Duration) *IPLimiter {
	l := &IPLimiter{
		buckets:    make(map[string]*ipBucket),
		capacity:   capacity,
		refillRate: refillRate,
		idleExpiry: idleExpiry,
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether a request from the given IP may proceed
func (l *IPLimiter) Allow(ip string) bool {
	l.mutex.Lock()

	entry, ok := l.buckets[ip]
	if !ok {
		entry = &ipBucket{bucket: NewTokenBucket(l.capacity, l.refillRate)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = time.Now()

	l.mutex.Unlock()

	return entry.bucket.Allow()
}

func (l *IPLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.idleExpiry)
	defer ticker.Stop()

	for range ticker.C {
		l.mutex.Lock()
		for ip, entry := range l.buckets {
			if time.Since(entry.lastSeen) > l.idleExpiry {
				delete(l.buckets, ip)
			}
		}
		l.mutex.Unlock()
	}
}
