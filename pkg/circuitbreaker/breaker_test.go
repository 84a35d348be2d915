package circuitbreaker

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, ResetTimeout: time.Minute, HalfOpenMaxCalls: 1})

	if cb.GetState() != StateClosed {
		t.Fatal("breaker should start closed")
	}

	cb.Failure()
	cb.Failure()

	if cb.GetState() != StateClosed {
		t.Error("breaker should stay closed below the threshold")
	}

	cb.Failure()

	if cb.GetState() != StateOpen {
		t.Error("breaker should open at the threshold")
	}

	if cb.Allow() {
		t.Error("open breaker should deny requests")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{FailureThreshold: 2, ResetTimeout: time.Minute, HalfOpenMaxCalls: 1})

	cb.Failure()
	cb.Success()
	cb.Failure()

	if cb.GetState() != StateClosed {
		t.Error("a success between failures should keep the breaker closed")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})

	cb.Failure()

	if cb.GetState() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("breaker should allow a probe after the reset timeout")
	}

	if cb.GetState() != StateHalfOpen {
		t.Errorf("state = %s, want half-open", cb.GetState())
	}

	// Limited probes while half-open
	if !cb.Allow() {
		t.Error("second probe within the limit should be allowed")
	}

	if cb.Allow() {
		t.Error("probes past the half-open limit should be denied")
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 1})

	cb.Failure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow()
	cb.Success()

	if cb.GetState() != StateClosed {
		t.Errorf("state after successful probe = %s, want closed", cb.GetState())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 1})

	cb.Failure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow()
	cb.Failure()

	if cb.GetState() != StateOpen {
		t.Errorf("state after failed probe = %s, want open", cb.GetState())
	}

	if cb.Allow() {
		t.Error("reopened breaker should deny requests")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	cb := New(Config{FailureThreshold: 5, ResetTimeout: time.Minute, HalfOpenMaxCalls: 1})

	cb.Failure()
	cb.Failure()

	m := cb.Metrics()

	if m["state"] != "closed" {
		t.Errorf("state = %v, want closed", m["state"])
	}

	if m["failure_count"] != int64(2) {
		t.Errorf("failure_count = %v, want 2", m["failure_count"])
	}
}
