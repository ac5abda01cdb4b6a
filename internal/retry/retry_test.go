package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestWithRetry_RetriesStatus(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return NewHTTPError(http.StatusServiceUnavailable, "503 Service Unavailable", "")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_StopsOnPermanentStatus(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return NewHTTPError(http.StatusNotFound, "404 Not Found", "https://x/a.jpg")
	})
	var httpErr HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected HTTPError 404, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return NewHTTPError(http.StatusTooManyRequests, "429", "")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_BusyPredicate(t *testing.T) {
	errBusy := errors.New("database is locked")
	cfg := Busy(func(err error) bool { return errors.Is(err, errBusy) })
	cfg.InitialBackoff = time.Millisecond

	attempts := 0
	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts == 1 {
			return errBusy
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Errorf("err = %v, attempts = %d", err, attempts)
	}

	attempts = 0
	other := errors.New("constraint failed")
	if err := WithRetry(context.Background(), cfg, func() error { attempts++; return other }); !errors.Is(err, other) || attempts != 1 {
		t.Errorf("non-busy error should not retry: err = %v, attempts = %d", err, attempts)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	err := WithRetry(ctx, cfg, func() error {
		cancel()
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, w := range want {
		if got := calculateBackoff(i, cfg); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}
