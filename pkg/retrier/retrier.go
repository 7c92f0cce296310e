// Package retrier wraps flaky upstream calls (market data, push delivery)
// in bounded exponential backoff with jitter.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMaxRetries      = 3

	backoffMultiplier = 2.0
	jitterFraction    = 0.2
)

// Retrier retries a call with exponential backoff. The zero value is not
// usable, construct with New.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.initialInterval = d }
}

// WithMaxInterval caps the backoff delay.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) { r.maxInterval = d }
}

// WithMaxRetries sets how many retries follow the initial attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// New builds a Retrier with defaults overridden by opts.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxRetries:      defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds, retries are exhausted, or ctx is cancelled.
// The last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay(attempt)):
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

// delay computes the backoff for the given retry attempt (1-based).
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.initialInterval)
	for i := 1; i < attempt; i++ {
		d *= backoffMultiplier
		if d >= float64(r.maxInterval) {
			d = float64(r.maxInterval)
			break
		}
	}
	jitter := (rand.Float64()*2 - 1) * jitterFraction * d
	if d += jitter; d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// DoWithData is Do for calls that return a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
