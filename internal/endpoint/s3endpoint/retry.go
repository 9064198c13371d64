package s3endpoint

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

// retrier implements the exponential-backoff-with-jitter policy of the
// teacher's internal/s3client.Client, generalized to wrap any operation
// rather than one method per S3 call.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func newRetrier() retrier {
	return retrier{maxRetries: 5, baseDelay: 100 * time.Millisecond, maxDelay: 30 * time.Second}
}

// do runs op, retrying on transient errors up to maxRetries times. notFound
// classifies an error that must never be retried (e.g. HeadObject's 404),
// separately from the generic retryable check, matching the teacher's
// headObjectWithRetry special case.
func (r retrier) do(ctx context.Context, notFound func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if notFound != nil && notFound(err) {
			return err
		}
		if !isRetryableError(err) {
			return err
		}
		lastErr = err
		if attempt < r.maxRetries {
			delay := r.calculateDelay(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException", "InternalError":
			return true
		}
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (r retrier) calculateDelay(attempt int) time.Duration {
	base := float64(r.baseDelay)
	delay := base * math.Pow(2.0, float64(attempt))
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	return time.Duration(delay)
}
