package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/event"
)

// ErrorCategory classifies errors for retry decisions.
type ErrorCategory int

const (
	// ErrCatInfrastructure means timing/transport issues that may resolve on retry.
	ErrCatInfrastructure ErrorCategory = iota
	// ErrCatProtocol means the peer reported a negotiation failure (don't retry).
	ErrCatProtocol
	// ErrCatAssertion means an observed value diverged from expectation (don't retry).
	ErrCatAssertion
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCatInfrastructure:
		return "infrastructure"
	case ErrCatProtocol:
		return "protocol"
	case ErrCatAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with a category for retry decisions.
type ClassifiedError struct {
	Category ErrorCategory
	Err      error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Infrastructure wraps an error as an infrastructure (retryable) error.
func Infrastructure(err error) error {
	return &ClassifiedError{Category: ErrCatInfrastructure, Err: err}
}

// Protocol wraps an error as a protocol (non-retryable) error.
func Protocol(err error) error {
	return &ClassifiedError{Category: ErrCatProtocol, Err: err}
}

// Category extracts the error category. Returns ErrCatAssertion for
// unclassified errors (conservative: don't retry unknown errors).
func Category(err error) ErrorCategory {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ErrCatAssertion
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return ErrCatInfrastructure
	}
	if endpoint.IsProtocolError(err) {
		return ErrCatProtocol
	}
	return ErrCatAssertion
}

// TimeoutError reports a wait that exceeded its bound. Retryable at the
// attempt level, a failure if attempts are exhausted.
type TimeoutError struct {
	Op    string
	Bound time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no event within %s", e.Op, e.Bound)
}

// timeoutOrWrap converts the queue timeout sentinel into a TimeoutError
// carrying the operation name, and passes other errors through.
func timeoutOrWrap(err error, op string, bound time.Duration) error {
	if errors.Is(err, event.ErrTimeout) {
		return &TimeoutError{Op: op, Bound: bound}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// AssertionError reports an observed value diverging from the expected
// outcome table. Always fatal to the case, never retried.
type AssertionError struct {
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %v, got %v", e.Message, e.Expected, e.Actual)
}

func assertionf(expected, actual any, format string, args ...any) error {
	return &AssertionError{
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
		Actual:   actual,
	}
}
