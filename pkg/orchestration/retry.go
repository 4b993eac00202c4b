package orchestration

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"
)

type (
	// RetryPolicy controls how a failed capability invocation is retried.
	// Only kinds listed in RetryableKinds are retried, at most MaxRetries
	// times after the initial attempt.
	RetryPolicy struct {
		MaxRetries        int           `json:"max_retries" yaml:"max_retries"`
		BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
		InitialDelay      time.Duration `json:"initial_delay" yaml:"initial_delay"`
		MaxDelay          time.Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		RetryableKinds    []ErrorKind   `json:"retryable_kinds" yaml:"retryable_kinds"`
	}

	// Invocation is the terminal result of a retried capability call
	Invocation struct {
		Value     any
		ErrorKind ErrorKind
		Err       error
		Attempts  int
	}

	// Sleeper suspends the caller for d, returning early with the context's
	// error if it is cancelled
	Sleeper func(ctx context.Context, d time.Duration) error

	retryNotice func(attempt int, delay time.Duration, resp Response)
)

const (
	DefaultMaxRetries        = 3
	DefaultBackoffMultiplier = 2.0
	DefaultInitialDelay      = 500 * time.Millisecond
	DefaultMaxDelay          = 30 * time.Second
)

// DefaultRetryPolicy retries transient failures three times with doubling
// delays
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        DefaultMaxRetries,
		BackoffMultiplier: DefaultBackoffMultiplier,
		InitialDelay:      DefaultInitialDelay,
		MaxDelay:          DefaultMaxDelay,
		RetryableKinds:    []ErrorKind{KindTransient},
	}
}

// NoRetry never retries
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// Validate checks the policy for consistency
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidRetryPolicy)
	}
	if p.BackoffMultiplier != 0 && p.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be >= 1", ErrInvalidRetryPolicy)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay cannot be negative", ErrInvalidRetryPolicy)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("%w: max delay cannot be negative", ErrInvalidRetryPolicy)
	}
	if p.MaxDelay != 0 && p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("%w: max delay must be >= initial delay", ErrInvalidRetryPolicy)
	}
	for _, k := range p.RetryableKinds {
		if !k.Valid() {
			return fmt.Errorf("%w: %w %q", ErrInvalidRetryPolicy, ErrInvalidErrorKind, k)
		}
		if k == KindCancelled {
			return fmt.Errorf("%w: cancelled is never retryable", ErrInvalidRetryPolicy)
		}
	}
	return nil
}

// Retryable reports whether the policy retries failures of kind k
func (p RetryPolicy) Retryable(k ErrorKind) bool {
	return k != KindCancelled && slices.Contains(p.RetryableKinds, k)
}

// Delay returns the wait before retry number attempt (zero-based):
// InitialDelay × BackoffMultiplier^attempt, capped at MaxDelay if set
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := p.BackoffMultiplier
	if mult == 0 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt))
	limit := float64(math.MaxInt64)
	if p.MaxDelay > 0 {
		limit = float64(p.MaxDelay)
	}
	if d >= limit || math.IsInf(d, 0) || math.IsNaN(d) {
		if p.MaxDelay > 0 {
			return p.MaxDelay
		}
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// SleepContext is the default Sleeper, backed by a timer
func SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InvokeWithRetry invokes operation on provider, retrying according to
// policy. The returned Invocation always reports how many attempts were
// made and, on failure, the final error kind.
func InvokeWithRetry(
	ctx context.Context, provider Provider, operation string, input Input,
	policy RetryPolicy,
) Invocation {
	return invokeWithRetry(ctx, provider, operation, input, policy,
		SleepContext, nil)
}

func invokeWithRetry(
	ctx context.Context, provider Provider, operation string, input Input,
	policy RetryPolicy, sleep Sleeper, notice retryNotice,
) Invocation {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return cancelledInvocation(err, attempts)
		}

		attempts++
		resp := provider.Invoke(ctx, operation, input)
		if resp.Success {
			return Invocation{Value: resp.Value, Attempts: attempts}
		}

		kind := resp.ErrorKind
		if !kind.Valid() {
			kind = KindOf(resp.Err)
		}
		if kind == KindNone {
			kind = KindPermanent
		}
		err := resp.Err
		if err == nil {
			err = fmt.Errorf("%s.%s failed (%s)", provider.Name(), operation, kind)
		}

		retries := attempts - 1
		if !policy.Retryable(kind) || retries >= policy.MaxRetries {
			return Invocation{ErrorKind: kind, Err: err, Attempts: attempts}
		}

		delay := policy.Delay(retries)
		if notice != nil {
			notice(attempts, delay, Response{ErrorKind: kind, Err: err})
		}
		if err := ctx.Err(); err != nil {
			return cancelledInvocation(err, attempts)
		}
		if err := sleep(ctx, delay); err != nil {
			return cancelledInvocation(err, attempts)
		}
	}
}

func cancelledInvocation(err error, attempts int) Invocation {
	return Invocation{ErrorKind: KindCancelled, Err: err, Attempts: attempts}
}
