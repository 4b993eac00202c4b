package orchestration

import (
	"fmt"
	"time"
)

type (
	// Outcome is the recorded result of one executed step
	Outcome struct {
		StepID    string        `json:"step_id"`
		Success   bool          `json:"success"`
		Value     any           `json:"value,omitempty"`
		ErrorKind ErrorKind     `json:"error_kind,omitempty"`
		Error     string        `json:"error,omitempty"`
		Attempts  int           `json:"attempts"`
		Duration  time.Duration `json:"duration"`
	}

	// ExecutionContext is the append-only record of step outcomes for a
	// single run. Insertion order is execution order. A skipped step has
	// no entry, which readers see as "absent".
	ExecutionContext struct {
		order    []string
		outcomes map[string]Outcome
	}
)

// NewExecutionContext returns an empty context
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{outcomes: map[string]Outcome{}}
}

// Outcome returns the recorded outcome for a step id
func (c *ExecutionContext) Outcome(id string) (Outcome, bool) {
	o, ok := c.outcomes[id]
	return o, ok
}

// Value returns the value of a successful step. Skipped, failed and
// unknown steps all report (nil, false).
func (c *ExecutionContext) Value(id string) (any, bool) {
	o, ok := c.outcomes[id]
	if !ok || !o.Success {
		return nil, false
	}
	return o.Value, true
}

// Has reports whether the step ran (successfully or not)
func (c *ExecutionContext) Has(id string) bool {
	_, ok := c.outcomes[id]
	return ok
}

// Succeeded reports whether the step ran and succeeded
func (c *ExecutionContext) Succeeded(id string) bool {
	o, ok := c.outcomes[id]
	return ok && o.Success
}

// Failed reports whether the step ran and failed
func (c *ExecutionContext) Failed(id string) bool {
	o, ok := c.outcomes[id]
	return ok && !o.Success
}

// Len returns the number of recorded outcomes
func (c *ExecutionContext) Len() int {
	return len(c.order)
}

// Outcomes returns a copy of all outcomes in execution order
func (c *ExecutionContext) Outcomes() []Outcome {
	res := make([]Outcome, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.outcomes[id])
	}
	return res
}

// Values returns the values of successful steps keyed by step id
func (c *ExecutionContext) Values() map[string]any {
	res := make(map[string]any, len(c.order))
	for _, id := range c.order {
		if o := c.outcomes[id]; o.Success {
			res[id] = o.Value
		}
	}
	return res
}

func (c *ExecutionContext) record(o Outcome) error {
	if _, ok := c.outcomes[o.StepID]; ok {
		return fmt.Errorf("%w: %s", ErrOutcomeExists, o.StepID)
	}
	c.order = append(c.order, o.StepID)
	c.outcomes[o.StepID] = o
	return nil
}
