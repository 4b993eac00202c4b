package definition

import (
	"fmt"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// ValidateDefinition checks the structure of a definition and returns
// every problem found. Capability references are checked for form only;
// resolution happens against a registry when the workflow runs.
func ValidateDefinition(def *Definition) []error {
	var errs []error

	if def.ID == "" {
		errs = append(errs, fmt.Errorf("workflow id is required"))
	}
	if len(def.Steps) == 0 {
		errs = append(errs, fmt.Errorf("workflow must contain at least one step"))
	}
	mode, err := orchestration.ParseFailureMode(def.FailureMode)
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := retryPolicy(def.Retry, orchestration.DefaultRetryPolicy()); err != nil {
		errs = append(errs, err)
	}

	seen := map[string]bool{}
	for i, step := range def.Steps {
		label := fmt.Sprintf("step %d (%s)", i+1, step.ID)
		if step.ID == "" {
			errs = append(errs, fmt.Errorf("step %d: id is required", i+1))
		} else if seen[step.ID] {
			errs = append(errs, fmt.Errorf("%s: %w", label, orchestration.ErrDuplicateStep))
		}
		seen[step.ID] = true

		if _, err := orchestration.ParseCapabilityRef(step.Capability); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if step.When != "" {
			if _, err := compilePredicate(step.ID, step.When); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", label, err))
			}
		}
		if _, err := compileValue(step.ID, toTree(step.Input)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}

		if step.Compensate == nil {
			continue
		}
		// An explicit lenient mode never compensates
		if def.FailureMode != "" && mode == orchestration.Lenient {
			errs = append(errs, fmt.Errorf("%s: compensation is never run in lenient mode", label))
		}
		if _, err := orchestration.ParseCapabilityRef(step.Compensate.Capability); err != nil {
			errs = append(errs, fmt.Errorf("%s compensation: %w", label, err))
		}
		if _, err := compileValue(step.ID+".compensate", toTree(step.Compensate.Input)); err != nil {
			errs = append(errs, fmt.Errorf("%s compensation: %w", label, err))
		}
	}
	return errs
}
