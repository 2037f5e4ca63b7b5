package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func TestExecutorRetriesTransientErrors(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "search.partition", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, TransientClassifier)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecutorStopsAfterMaxAttempts(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "search.partition", func(context.Context) error {
		calls++
		return errors.New("still failing")
	}, TransientClassifier)

	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestExecutorDoesNotRetryNonRetryable(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "llm.generate", func(context.Context) error {
		calls++
		return errors.New("bad request")
	}, nil)

	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected single attempt without classifier, got %d", calls)
	}
}

func TestExecutorHonorsContextCancellation(t *testing.T) {
	executor := NewExecutor(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := executor.Execute(ctx, "search.partition", func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}, TransientClassifier)

	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected no retries after cancellation, got %d attempts", calls)
	}
}

func TestTransientClassifierSkipsContextErrors(t *testing.T) {
	if retryable, _ := TransientClassifier(context.Canceled); retryable {
		t.Fatalf("context.Canceled must not be retryable")
	}
	if retryable, _ := TransientClassifier(context.DeadlineExceeded); retryable {
		t.Fatalf("context.DeadlineExceeded must not be retryable")
	}
	if retryable, _ := TransientClassifier(errors.New("boom")); !retryable {
		t.Fatalf("generic errors must be retryable")
	}
}
