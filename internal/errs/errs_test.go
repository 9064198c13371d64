package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	e := New(NotFound, "dir1/data1", "object absent")
	if e.Error() != "not_found: dir1/data1: object absent" {
		t.Fatalf("unexpected message: %s", e.Error())
	}

	withVersion := e.WithVersion("v1")
	if withVersion.Error() != "not_found: dir1/data1 (version v1): object absent" {
		t.Fatalf("unexpected versioned message: %s", withVersion.Error())
	}
}

func TestWrapPreservesExistingKind(t *testing.T) {
	original := New(IntegrityFailed, "k", "etag mismatch")
	wrapped := Wrap(Transport, "k", original)
	if wrapped.Kind != IntegrityFailed {
		t.Fatalf("expected wrap to preserve original kind, got %s", wrapped.Kind)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(Transport, "k", nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestIsUnwraps(t *testing.T) {
	base := New(Cancelled, "k", "cancelled")
	outer := errors.New("wrapper without Unwrap")
	if Is(outer, Cancelled) {
		t.Fatal("plain error should not match")
	}
	if !Is(base, Cancelled) {
		t.Fatal("expected Is to match")
	}
	wrapped := fmt.Errorf("context: %w", base)
	if !Is(wrapped, Cancelled) {
		t.Fatal("expected Is to unwrap to the *Error")
	}
}

func TestRetryableAndPipelineFatal(t *testing.T) {
	if !Transport.Retryable() {
		t.Fatal("Transport must be retryable")
	}
	if NotFound.Retryable() {
		t.Fatal("NotFound must not be retryable")
	}
	if !Script.PipelineFatal() || !Config.PipelineFatal() {
		t.Fatal("Script and Config must be pipeline fatal")
	}
	if Transport.PipelineFatal() {
		t.Fatal("Transport must not be pipeline fatal")
	}
}
