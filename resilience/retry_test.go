package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/httpkit/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	var calls int
	got, err := Retry(context.Background(), fastRetry(3), func(attempt int) (string, error) {
		calls++
		if attempt < 3 {
			return "", apperrors.Transport(apperrors.ReasonReset, nil)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", got, calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"tls", apperrors.Transport(apperrors.ReasonTLS, nil)},
		{"rejected", apperrors.Transport(apperrors.ReasonRejected, nil)},
		{"cancelled", apperrors.Cancelled(nil)},
		{"plain", errors.New("plain")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			err := RetryFunc(context.Background(), fastRetry(5), func(int) error {
				calls++
				return tc.err
			})
			if calls != 1 {
				t.Errorf("expected a single attempt, got %d", calls)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("expected original error, got %v", err)
			}
		})
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	var calls int
	err := RetryFunc(context.Background(), fastRetry(2), func(int) error {
		calls++
		return apperrors.Timeout(apperrors.PhaseRead, nil)
	})
	if !apperrors.IsTimeout(err) || calls != 2 {
		t.Errorf("expected timeout after 2 calls, got %v after %d", err, calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	err := RetryFunc(ctx, cfg, func(int) error {
		return apperrors.Transport(apperrors.ReasonIO, nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, tc := range tests {
		if got := cfg.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryConfig_ApplyDefaults(t *testing.T) {
	var cfg RetryConfig
	cfg.ApplyDefaults()
	if cfg.MaxAttempts != 3 || cfg.BackoffFactor != 2 || cfg.RetryIf == nil {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
