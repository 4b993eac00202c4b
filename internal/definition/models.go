package definition

import "time"

// Definition is the file form of a workflow
type Definition struct {
	// Unique workflow id (required)
	ID string `mapstructure:"id"`

	// Human-readable name
	Name string `mapstructure:"name"`

	// Optional description of the workflow
	Description string `mapstructure:"description"`

	// strict or lenient; empty falls back to the configured default
	FailureMode string `mapstructure:"failure_mode"`

	// Optional overrides of the configured retry policy
	Retry *Retry `mapstructure:"retry"`

	// Ordered list of steps to execute
	Steps []Step `mapstructure:"steps"`

	// Path the definition was loaded from, if any
	Source string `mapstructure:"-"`
}

// Retry overrides individual retry policy fields. Unset fields keep the
// configured defaults.
type Retry struct {
	MaxRetries        *int           `mapstructure:"max_retries"`
	BackoffMultiplier *float64       `mapstructure:"backoff_multiplier"`
	InitialDelay      *time.Duration `mapstructure:"initial_delay"`
	MaxDelay          *time.Duration `mapstructure:"max_delay"`
	Retryable         []string       `mapstructure:"retryable"`
}

// Step is the file form of a workflow step
type Step struct {
	// Unique step id (required)
	ID string `mapstructure:"id"`

	Name string `mapstructure:"name"`

	// Capability in provider.operation form (required)
	Capability string `mapstructure:"capability"`

	// Optional expr-lang predicate over request, steps and succeeded
	When string `mapstructure:"when"`

	// Input tree; string leaves are templates
	Input map[string]any `mapstructure:"input"`

	// Optional undo action, run only during strict-mode rollback
	Compensate *Compensate `mapstructure:"compensate"`
}

// Compensate declares the undo action of a step
type Compensate struct {
	Capability string         `mapstructure:"capability"`
	Input      map[string]any `mapstructure:"input"`
}
