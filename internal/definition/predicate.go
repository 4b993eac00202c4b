package definition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// predicateEnv declares the variables a when expression may reference
func predicateEnv() map[string]any {
	return map[string]any{
		"request":   map[string]any{},
		"steps":     map[string]any{},
		"succeeded": map[string]bool{},
	}
}

func compilePredicate(stepID, when string) (*vm.Program, error) {
	program, err := expr.Compile(when, expr.Env(predicateEnv()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: step %s: %w", errors.ErrInvalidExpression, stepID, err)
	}
	return program, nil
}

// predicate wraps a compiled program. An expression that fails at run time
// is false.
func predicate(stepID string, program *vm.Program) orchestration.Predicate {
	return func(req orchestration.Request, ec *orchestration.ExecutionContext) bool {
		out, err := expr.Run(program, scope(req, ec))
		if err != nil {
			logger.LogWarn("Step condition could not be evaluated; skipping step", map[string]interface{}{
				"step":  stepID,
				"error": err.Error(),
			})
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}

// scope is the data visible to predicates and templates
func scope(req orchestration.Request, ec *orchestration.ExecutionContext) map[string]any {
	succeeded := map[string]bool{}
	steps := map[string]any{}
	if ec != nil {
		for _, o := range ec.Outcomes() {
			succeeded[o.StepID] = o.Success
		}
		for id, v := range ec.Values() {
			steps[id] = v
		}
	}
	return map[string]any{
		"request":   req,
		"steps":     steps,
		"succeeded": succeeded,
	}
}
