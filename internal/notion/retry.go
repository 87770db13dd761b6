package notion

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// Retry defaults for source API calls.
const (
	DefaultAttempts  = 6
	DefaultBaseDelay = 800 * time.Millisecond
	DefaultMaxDelay  = 60 * time.Second
)

// Timer waits for a backoff delay. Tests substitute one that records delays without sleeping.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

// RetryPolicy runs source calls with bounded exponential backoff.
// A server-provided Retry-After is honored exactly; otherwise the delay for
// retry n (starting at 0) is min(MaxDelay, BaseDelay * 2^n).
type RetryPolicy struct {
	Attempts  uint
	BaseDelay time.Duration
	MaxDelay  time.Duration

	timer   Timer
	logger  *zap.Logger
	onRetry func(attempt uint, err error)
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithTimer sets the timer used to wait between attempts.
func WithTimer(t Timer) RetryOption {
	return func(p *RetryPolicy) { p.timer = t }
}

// WithRetryLogger sets a logger for retry warnings.
func WithRetryLogger(l *zap.Logger) RetryOption {
	return func(p *RetryPolicy) { p.logger = l }
}

// WithOnRetry registers a callback invoked before each backoff wait.
func WithOnRetry(fn func(attempt uint, err error)) RetryOption {
	return func(p *RetryPolicy) { p.onRetry = fn }
}

// NewRetryPolicy returns a policy with the default attempts and delays.
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
		MaxDelay:  DefaultMaxDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Backoff returns the computed delay for retry n when the server gave no hint.
func (p *RetryPolicy) Backoff(n uint) time.Duration {
	if n > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay * time.Duration(1<<n)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// nextDelay returns the wait before the next attempt: a server-provided
// Retry-After when present, else the computed backoff for retry n.
func (p *RetryPolicy) nextDelay(n uint, err error) time.Duration {
	if ra := retryAfter(err); ra > 0 {
		return ra
	}
	return p.Backoff(n)
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts are exhausted.
// The returned error is the last one fn produced.
func (p *RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var retries uint
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			d := p.nextDelay(retries, err)
			retries++
			p.logger.Warn("source call failed, retrying",
				zap.String("op", op),
				zap.Uint("retry", retries),
				zap.Duration("delay", d),
				zap.Error(err),
			)
			return d
		}),
	}
	if p.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			if n+1 < p.Attempts {
				p.onRetry(n, err)
			}
		}))
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}
	return retry.Do(func() error { return fn(ctx) }, opts...)
}
