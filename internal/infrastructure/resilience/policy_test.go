package resilience

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := Config{RetryInitialBackoff: 100 * time.Millisecond, RetryMaxBackoff: 350 * time.Millisecond, RetryMultiplier: 2}
	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for attempt, expected := range want {
		if got := cfg.Backoff(attempt); got != expected {
			t.Fatalf("Backoff(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestNormalizeFillsUnsetValues(t *testing.T) {
	cfg := Config{RetryInitialBackoff: 5 * time.Second}.normalize()
	if cfg.RetryMaxAttempts != 3 || cfg.RetryMultiplier != 2 {
		t.Fatalf("unexpected retry settings %+v", cfg)
	}
	if cfg.RetryMaxBackoff != 5*time.Second {
		t.Fatalf("max backoff must not drop below the initial backoff, got %v", cfg.RetryMaxBackoff)
	}
	if cfg.BreakerMinRequests != 10 || cfg.BreakerHalfOpenMaxCalls != 2 {
		t.Fatalf("unexpected breaker settings %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("zero config must be accepted, got %v", err)
	}
	bad := Config{RetryMaxAttempts: -1, RetryMultiplier: 0.5, BreakerFailureRatio: 2}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}
