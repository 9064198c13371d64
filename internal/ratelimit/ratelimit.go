// Package ratelimit implements the dual token-bucket limiter of spec.md
// §4.6 (--rate-limit-objects, --rate-limit-bandwidth), grounded on the
// golang.org/x/time/rate usage in nguyengg/xy3's multipart uploader
// (limiter.WaitN(ctx, len(data)) gating each part write).
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates both the object rate and the byte rate of a sync run. A
// zero value for either knob disables that bucket (rate.Inf, matching the
// teacher-adjacent uploader's MaxBytesInSecond==0 case).
type Limiter struct {
	objects *rate.Limiter
	bytes   *rate.Limiter
}

// New builds a Limiter. objectsPerSecond/bytesPerSecond of 0 disable the
// corresponding bucket.
func New(objectsPerSecond, bytesPerSecond float64) *Limiter {
	l := &Limiter{}
	if objectsPerSecond <= 0 {
		l.objects = rate.NewLimiter(rate.Inf, 0)
	} else {
		l.objects = rate.NewLimiter(rate.Limit(objectsPerSecond), 1)
	}
	if bytesPerSecond <= 0 {
		l.bytes = rate.NewLimiter(rate.Inf, 0)
	} else {
		burst := int(bytesPerSecond)
		if burst < 1 {
			burst = 1
		}
		l.bytes = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
	}
	return l
}

// WaitObject blocks until one object-transfer token is available, or ctx
// is cancelled.
func (l *Limiter) WaitObject(ctx context.Context) error {
	return l.objects.Wait(ctx)
}

// WaitBytes blocks until n bytes' worth of bandwidth tokens are available.
// n may exceed the bucket's burst size (e.g. a single large part): x/time/rate's
// WaitN rejects n>burst on a finite limiter, so waitN splits such a request
// into burst-sized waits instead of failing.
func (l *Limiter) WaitBytes(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return waitN(ctx, l.bytes, n)
}

// waitN works around rate.Limiter.WaitN's burst ceiling by chunking the
// request into burst-sized waits when n exceeds the configured burst.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()
	if burst <= 0 || n <= burst {
		return limiter.WaitN(ctx, n)
	}
	remaining := n
	for remaining > 0 {
		chunk := burst
		if remaining < chunk {
			chunk = remaining
		}
		if err := limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		remaining -= chunk
	}
	return nil
}
