package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustion(t *testing.T) {
	// Negligible refill so the test controls the token count
	tb := NewTokenBucket(3, 0.0001)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("request past capacity should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 100)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}

	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)

	if !tb.Allow() {
		t.Error("bucket should refill over time")
	}
}

func TestTokenBucketAllowN(t *testing.T) {
	tb := NewTokenBucket(5, 0.0001)

	if !tb.AllowN(4) {
		t.Fatal("4 of 5 tokens should be allowed")
	}

	if tb.AllowN(2) {
		t.Error("2 tokens should be denied with 1 remaining")
	}

	if !tb.AllowN(1) {
		t.Error("the last token should be allowed")
	}
}

func TestIPLimiterTracksClientsSeparately(t *testing.T) {
	l := NewIPLimiter(1, 0.0001, time.Minute)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first request from first client should be allowed")
	}

	if l.Allow("10.0.0.1") {
		t.Error("second request from same client should be denied")
	}

	if !l.Allow("10.0.0.2") {
		t.Error("request from a different client should be allowed")
	}
}
