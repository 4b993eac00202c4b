package definition

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// Defaults are applied where a definition leaves a setting unset
type Defaults struct {
	FailureMode orchestration.FailureMode
	Retry       orchestration.RetryPolicy
}

// DefaultDefaults mirrors the orchestration package defaults
func DefaultDefaults() Defaults {
	return Defaults{
		FailureMode: orchestration.Strict,
		Retry:       orchestration.DefaultRetryPolicy(),
	}
}

// Build turns a definition into an executable workflow. Every problem found
// by ValidateDefinition is returned together.
func Build(def *Definition, defaults Defaults) (*orchestration.Workflow, error) {
	if errs := ValidateDefinition(def); len(errs) > 0 {
		return nil, joinErrors(def, errs)
	}

	mode := defaults.FailureMode
	if def.FailureMode != "" {
		mode, _ = orchestration.ParseFailureMode(def.FailureMode)
	}
	retry, err := retryPolicy(def.Retry, defaults.Retry)
	if err != nil {
		return nil, joinErrors(def, []error{err})
	}

	wf := &orchestration.Workflow{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		FailureMode: mode,
		Retry:       retry,
		Steps:       make([]orchestration.Step, 0, len(def.Steps)),
	}
	for _, s := range def.Steps {
		step, err := buildStep(s)
		if err != nil {
			return nil, joinErrors(def, []error{err})
		}
		// Lenient runs never compensate; an inherited lenient mode keeps the
		// declared undo actions out of the workflow
		if wf.Mode() == orchestration.Lenient {
			step.Compensation = nil
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf, nil
}

func buildStep(s Step) (orchestration.Step, error) {
	ref, err := orchestration.ParseCapabilityRef(s.Capability)
	if err != nil {
		return orchestration.Step{}, err
	}
	input, err := compileValue(s.ID, toTree(s.Input))
	if err != nil {
		return orchestration.Step{}, err
	}

	step := orchestration.Step{
		ID:         s.ID,
		Name:       s.Name,
		Capability: ref,
		Input: func(req orchestration.Request, ec *orchestration.ExecutionContext) (orchestration.Input, error) {
			return input.render(scope(req, ec))
		},
	}
	if s.When != "" {
		program, err := compilePredicate(s.ID, s.When)
		if err != nil {
			return orchestration.Step{}, err
		}
		step.When = predicate(s.ID, program)
	}
	if s.Compensate != nil {
		comp, err := buildCompensation(s.ID, s.Compensate)
		if err != nil {
			return orchestration.Step{}, err
		}
		step.Compensation = comp
	}
	return step, nil
}

// buildCompensation compiles an undo action. Compensation inputs see the
// recorded step values only; the request is not available to them.
func buildCompensation(stepID string, c *Compensate) (*orchestration.Compensation, error) {
	ref, err := orchestration.ParseCapabilityRef(c.Capability)
	if err != nil {
		return nil, fmt.Errorf("step %s compensation: %w", stepID, err)
	}
	input, err := compileValue(stepID+".compensate", toTree(c.Input))
	if err != nil {
		return nil, err
	}
	return &orchestration.Compensation{
		Capability: ref,
		Input: func(ec *orchestration.ExecutionContext) (orchestration.Input, error) {
			return input.render(scope(nil, ec))
		},
	}, nil
}

func retryPolicy(r *Retry, base orchestration.RetryPolicy) (orchestration.RetryPolicy, error) {
	if r == nil {
		return base, nil
	}
	policy := base
	if r.MaxRetries != nil {
		policy.MaxRetries = *r.MaxRetries
	}
	if r.BackoffMultiplier != nil {
		policy.BackoffMultiplier = *r.BackoffMultiplier
	}
	if r.InitialDelay != nil {
		policy.InitialDelay = *r.InitialDelay
	}
	if r.MaxDelay != nil {
		policy.MaxDelay = *r.MaxDelay
	}
	if r.Retryable != nil {
		policy.RetryableKinds = make([]orchestration.ErrorKind, 0, len(r.Retryable))
		for _, s := range r.Retryable {
			k, err := orchestration.ParseErrorKind(s)
			if err != nil {
				return orchestration.RetryPolicy{}, err
			}
			policy.RetryableKinds = append(policy.RetryableKinds, k)
		}
	}
	if err := policy.Validate(); err != nil {
		return orchestration.RetryPolicy{}, err
	}
	return policy, nil
}

// toTree returns a nil input as an empty map so providers always receive
// an object
func toTree(in map[string]any) any {
	if in == nil {
		return map[string]any{}
	}
	return in
}

func joinErrors(def *Definition, errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	name := def.ID
	if def.Source != "" {
		name = def.Source
	}
	return fmt.Errorf("%w: %s: %s", errors.ErrInvalidDefinition, name, strings.Join(msgs, "; "))
}
