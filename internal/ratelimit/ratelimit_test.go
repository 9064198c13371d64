package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDisabledLimitsDoNotBlock(t *testing.T) {
	l := New(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.WaitObject(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.WaitBytes(ctx, 10_000_000); err != nil {
		t.Fatal(err)
	}
}

func TestObjectRateLimitsThroughput(t *testing.T) {
	l := New(1000, 0) // generous but non-zero, just exercising the real bucket
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.WaitObject(ctx); err != nil {
			t.Fatal(err)
		}
	}
	// burst 1 at 1000/s: the 5th token is available ~4ms after the first.
	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Fatalf("expected 5 objects at 1000/s to take at least 3ms, took %s", elapsed)
	}
}

func TestWaitBytesChunksRequestsLargerThanBurst(t *testing.T) {
	l := New(0, 10) // burst == 10 bytes
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.WaitBytes(ctx, 25); err != nil {
		t.Fatal(err)
	}
}

func TestWaitBytesRespectsCancellation(t *testing.T) {
	l := New(0, 1) // 1 byte/sec, tiny burst
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := l.WaitBytes(ctx, 1000); err == nil {
		t.Fatal("expected context deadline to abort the wait")
	}
}
