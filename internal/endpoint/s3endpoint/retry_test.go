package s3endpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
)

func TestRetrierSucceedsWithoutRetryOnNilError(t *testing.T) {
	r := newRetrier()
	calls := 0
	err := r.do(context.Background(), nil, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRetrierStopsImmediatelyOnNonRetryableError(t *testing.T) {
	r := newRetrier()
	wantErr := errors.New("boom")
	calls := 0
	err := r.do(context.Background(), nil, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the underlying error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestRetrierHonorsNotFoundClassifier(t *testing.T) {
	r := newRetrier()
	notFoundErr := errors.New("not found")
	calls := 0
	err := r.do(context.Background(), func(error) bool { return true }, func() error {
		calls++
		return notFoundErr
	})
	if !errors.Is(err, notFoundErr) {
		t.Fatalf("expected not-found error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("not-found error must short-circuit retries, got %d calls", calls)
	}
}

func TestRetrierAbortsOnContextCancellation(t *testing.T) {
	r := retrier{maxRetries: 3, baseDelay: 0, maxDelay: 0}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.do(ctx, nil, func() error {
		calls++
		return &retryableStub{}
	})
	if err == nil {
		t.Fatal("expected an error after context cancellation")
	}
}

type retryableStub struct{}

func (*retryableStub) Error() string                   { return "ServiceUnavailable" }
func (*retryableStub) ErrorCode() string                { return "ServiceUnavailable" }
func (*retryableStub) ErrorMessage() string             { return "service unavailable" }
func (*retryableStub) ErrorFault() smithy.ErrorFault    { return smithy.FaultServer }
