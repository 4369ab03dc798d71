// Package activity runs side-effect activities with bounded retries. Each
// execution is deduplicated against the triggering event so a replayed or
// redelivered event never runs its side effects twice
package activity

import (
	"errors"
	"math"
	"time"

	"github.com/docketry/docket/pkg/api"
)

type (
	// RetryPolicy bounds activity retries and shapes their backoff
	RetryPolicy struct {
		Retryable   func(error) bool
		BackoffType string
		MaxAttempts int
		InitBackoff int64
		MaxBackoff  int64
	}

	backoffCalculator func(baseDelayMs int64, attempt int) int64
)

const (
	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"

	DefaultMaxAttempts = 3
	DefaultInitBackoff = 1000
	DefaultMaxBackoff  = 60000
)

var backoffCalculators = map[string]backoffCalculator{
	BackoffTypeFixed: func(base int64, _ int) int64 {
		return base
	},
	BackoffTypeLinear: func(base int64, attempt int) int64 {
		return base * int64(attempt+1)
	},
	BackoffTypeExponential: func(base int64, attempt int) int64 {
		multiplier := math.Pow(2, float64(attempt))
		return int64(float64(base) * multiplier)
	},
}

// DefaultRetryPolicy returns the standard activity retry policy: three
// attempts with exponential backoff, retrying only transient failures
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		InitBackoff: DefaultInitBackoff,
		MaxBackoff:  DefaultMaxBackoff,
		BackoffType: BackoffTypeExponential,
		Retryable:   IsTransient,
	}
}

// IsTransient reports whether the error may clear on retry
func IsTransient(err error) bool {
	return errors.Is(err, api.ErrTransientInfra)
}

// WithDefaults returns a copy of the policy with zero fields filled in
func (p RetryPolicy) WithDefaults() RetryPolicy {
	res := p
	if res.MaxAttempts == 0 {
		res.MaxAttempts = DefaultMaxAttempts
	}
	if res.InitBackoff <= 0 {
		res.InitBackoff = DefaultInitBackoff
	}
	if res.MaxBackoff <= 0 {
		res.MaxBackoff = DefaultMaxBackoff
	}
	if res.BackoffType == "" {
		res.BackoffType = BackoffTypeExponential
	}
	if res.Retryable == nil {
		res.Retryable = IsTransient
	}
	return res
}

// ShouldRetry reports whether another attempt is permitted after a failure
// on the given zero-based attempt
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if !p.Retryable(err) {
		return false
	}
	if p.MaxAttempts < 0 {
		return true
	}
	return attempt+1 < p.MaxAttempts
}

// NextDelay computes the backoff before the attempt following the given
// zero-based attempt
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	calculator, ok := backoffCalculators[p.BackoffType]
	if !ok {
		calculator = backoffCalculators[BackoffTypeFixed]
	}
	delayMs := calculator(p.InitBackoff, attempt)
	if delayMs > p.MaxBackoff {
		delayMs = p.MaxBackoff
	}
	return time.Duration(delayMs) * time.Millisecond
}
