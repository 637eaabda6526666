package retry

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestForeverSucceedsImmediately(t *testing.T) {
	calls := 0
	err := Forever(context.Background(), zap.NewNop(), func(error) bool { return true }, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestForeverReturnsNonRetryableImmediately(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	err := Forever(context.Background(), zap.NewNop(), func(error) bool { return false }, func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestForeverStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sentinel := errors.New("lock busy")
	err := Forever(ctx, zap.NewNop(), func(error) bool { return true }, func(context.Context) error {
		return sentinel
	})
	if err == nil {
		t.Fatalf("expected an error once context is cancelled")
	}
}
