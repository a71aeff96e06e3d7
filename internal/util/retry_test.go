package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryErrStopsOnSuccess(t *testing.T) {
	calls := 0
	err := RetryErr(5, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryErr() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryErrReturnsLastError(t *testing.T) {
	want := errors.New("persistent")
	err := RetryErr(3, func() error { return want })
	if !errors.Is(err, want) {
		t.Errorf("RetryErr() = %v, want %v", err, want)
	}
}

func TestRetryErrWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryErrWithContext(ctx, 3, func(context.Context) error {
		calls++
		return errors.New("should not retry")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 after cancellation", calls)
	}
}

func TestRetryWithContextReturnsResult(t *testing.T) {
	got, err := RetryWithContext(context.Background(), 2, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("RetryWithContext() = (%d, %v), want (42, nil)", got, err)
	}
}
