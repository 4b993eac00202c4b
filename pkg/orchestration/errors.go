package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed capability invocation. The set is closed so
// retry policies can match against it.
type ErrorKind string

const (
	// KindNone marks a successful outcome
	KindNone ErrorKind = ""

	// KindTransient is retryable (network, timeout)
	KindTransient ErrorKind = "transient"

	// KindPermanent is a non-retryable business failure
	KindPermanent ErrorKind = "permanent"

	// KindValidation is a non-retryable problem with the caller's input
	KindValidation ErrorKind = "validation"

	// KindCancelled is caller-initiated and never retried
	KindCancelled ErrorKind = "cancelled"
)

var (
	ErrInvalidWorkflow      = errors.New("invalid workflow")
	ErrDuplicateStep        = errors.New("duplicate step id")
	ErrUnknownProvider      = errors.New("unknown capability provider")
	ErrUnsupportedOperation = errors.New("operation not supported by provider")
	ErrDuplicateProvider    = errors.New("provider already registered")
	ErrInvalidRetryPolicy   = errors.New("invalid retry policy")
	ErrInvalidErrorKind     = errors.New("invalid error kind")
	ErrOutcomeExists        = errors.New("outcome already recorded")
	ErrInvalidCapabilityRef = errors.New("invalid capability reference")
)

var allKinds = []ErrorKind{
	KindTransient, KindPermanent, KindValidation, KindCancelled,
}

// ParseErrorKind converts a textual kind into an ErrorKind
func ParseErrorKind(s string) (ErrorKind, error) {
	k := ErrorKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allKinds {
		if k == known {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", ErrInvalidErrorKind, s)
}

// Valid reports whether k is one of the closed set of failure kinds
func (k ErrorKind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k ErrorKind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// StepError describes the terminal failure of a single step
type StepError struct {
	StepID   string
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("step %s failed (%s) after %d attempt(s)",
			e.StepID, e.Kind, e.Attempts)
	}
	return fmt.Sprintf("step %s failed (%s) after %d attempt(s): %v",
		e.StepID, e.Kind, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ErrorKind reports the step's terminal kind
func (e *StepError) ErrorKind() ErrorKind {
	return e.Kind
}

type kinded interface {
	ErrorKind() ErrorKind
}

// KindError attaches an ErrorKind to an arbitrary error
type KindError struct {
	kind ErrorKind
	err  error
}

// WithKind wraps err so that KindOf reports kind for it
func WithKind(kind ErrorKind, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &KindError{kind: kind, err: err}
}

func (e *KindError) Error() string {
	return e.err.Error()
}

func (e *KindError) Unwrap() error {
	return e.err
}

// ErrorKind implements the interface KindOf looks for
func (e *KindError) ErrorKind() ErrorKind {
	return e.kind
}

// KindOf classifies an arbitrary error. Errors that carry no kind are
// treated as permanent.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ke kinded
	if errors.As(err, &ke) && ke.ErrorKind().Valid() {
		return ke.ErrorKind()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	return KindPermanent
}
