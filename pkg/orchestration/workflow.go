package orchestration

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// FailureMode selects how a run reacts to a terminal step failure
	FailureMode string

	// InputBuilder derives a step's input from the original request and
	// the outcomes of earlier steps. It must not mutate its arguments.
	InputBuilder func(req Request, ec *ExecutionContext) (Input, error)

	// Predicate decides whether a step runs at all
	Predicate func(req Request, ec *ExecutionContext) bool

	// Compensation undoes the effect of a successful step. It is invoked
	// through the registry exactly once during strict-mode rollback.
	Compensation struct {
		Capability CapabilityRef
		Input      func(ec *ExecutionContext) (Input, error)
	}

	// Step is the declarative unit of a workflow
	Step struct {
		ID           string
		Name         string
		Capability   CapabilityRef
		Input        InputBuilder
		When         Predicate
		Compensation *Compensation
	}

	// Workflow is an ordered list of steps. Sequence order is execution
	// order and dependency order.
	Workflow struct {
		ID          string
		Name        string
		Description string
		Steps       []Step
		FailureMode FailureMode
		Retry       RetryPolicy
	}
)

const (
	// Strict aborts on the first terminal failure and compensates
	Strict FailureMode = "strict"

	// Lenient records failures, keeps going, and aggregates a report
	Lenient FailureMode = "lenient"
)

// ParseFailureMode parses a textual failure mode. The empty string is
// Strict.
func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Lenient:
		return Lenient, nil
	default:
		return "", fmt.Errorf("%w: unknown failure mode %q", ErrInvalidWorkflow, s)
	}
}

// Mode returns the effective failure mode; the zero value is Strict
func (w *Workflow) Mode() FailureMode {
	if w.FailureMode == Lenient {
		return Lenient
	}
	return Strict
}

// Step returns the step with the given id
func (w *Workflow) Step(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Index returns the execution index of a step id, or -1
func (w *Workflow) Index(id string) int {
	for i, s := range w.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the workflow's structure. When reg is non-nil every
// capability reference must resolve through it.
func (w *Workflow) Validate(reg *Registry) error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("workflow id is required"))
	}
	switch w.FailureMode {
	case "", Strict, Lenient:
	default:
		errs = append(errs, fmt.Errorf("unknown failure mode %q", w.FailureMode))
	}
	if err := w.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}

	seen := map[string]bool{}
	for i, s := range w.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("step %d: id is required", i+1))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID))
		}
		seen[s.ID] = true

		errs = append(errs, checkRef(reg, s.ID, s.Capability)...)
		if s.Compensation == nil {
			continue
		}
		if w.Mode() == Lenient {
			errs = append(errs, fmt.Errorf(
				"step %s: compensation is never run in lenient mode", s.ID))
		}
		errs = append(errs, checkRef(reg, s.ID, s.Compensation.Capability)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %w", ErrInvalidWorkflow, w.ID, errors.Join(errs...))
}

func checkRef(reg *Registry, stepID string, ref CapabilityRef) []error {
	if ref.Provider == "" || ref.Operation == "" {
		return []error{fmt.Errorf("step %s: %w: %q", stepID,
			ErrInvalidCapabilityRef, ref.String())}
	}
	if reg == nil {
		return nil
	}
	if _, err := reg.Resolve(ref); err != nil {
		return []error{fmt.Errorf("step %s: %w", stepID, err)}
	}
	return nil
}
