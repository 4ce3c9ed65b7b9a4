package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestIsRetryableError(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"throttled", errors.New("index request: status 429"), true},
		{"server error", errors.New("profile request: status 503"), true},
		{"not found is permanent", errors.New("profile request: status 404"), false},
		{"bad request is permanent", errors.New("index request: status 400"), false},
		{"clickhouse connection lost", errors.New("code: 999, message: connection lost"), true},
		{"unrelated error", errors.New("invalid criteria"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err, cfg); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoWithResult_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoWithResult() error = %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoWithResult_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("profile request: status 404")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("permanent error retried %d times", attempts)
	}
}

func TestDoWithResult_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		t.Error("operation should not run with a cancelled context")
		return nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}
