package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	// RunStatus is the terminal classification of a run
	RunStatus string

	// RunResult is what a run produces. In strict mode it is either
	// completed or rolled back; in lenient mode it is always completed and
	// carries an aggregate report. Either mode may end cancelled.
	RunResult struct {
		RunID      string      `json:"run_id"`
		WorkflowID string      `json:"workflow_id"`
		Mode       FailureMode `json:"mode"`
		Status     RunStatus   `json:"status"`
		Outcomes   []Outcome   `json:"outcomes"`
		Skipped    []string    `json:"skipped,omitempty"`

		// FailedStepID is the step that ended the run: the failing step
		// of a rollback, or the step that was interrupted by cancellation
		FailedStepID    string              `json:"failed_step_id,omitempty"`
		ErrorKind       ErrorKind           `json:"error_kind,omitempty"`
		Cause           string              `json:"cause,omitempty"`
		CompensationLog []CompensationEntry `json:"compensation_log,omitempty"`
		Report          *AggregateReport    `json:"report,omitempty"`

		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`
	}

	// Orchestrator walks workflows step by step. It holds no per-run
	// state, so one Orchestrator may serve many concurrent runs.
	Orchestrator struct {
		registry *Registry
		log      *zap.Logger
		observer Observer
		sleep    Sleeper
		now      func() time.Time
		newID    func() string
	}

	// Option configures an Orchestrator
	Option func(*Orchestrator)

	run struct {
		*Orchestrator
		id      string
		wf      *Workflow
		req     Request
		ec      *ExecutionContext
		skipped []string
		log     *zap.Logger
	}
)

const (
	StatusCompleted  RunStatus = "completed"
	StatusRolledBack RunStatus = "rolled_back"
	StatusCancelled  RunStatus = "cancelled"
)

// WithLogger sets the logger used for run diagnostics
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver sets the observer receiving step events
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithSleeper replaces the backoff sleeper
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithClock replaces the wall clock used for timestamps and durations
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunIDs replaces the run id generator
func WithRunIDs(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// New creates an Orchestrator resolving capabilities through reg
func New(reg *Registry, opts ...Option) *Orchestrator {
	if reg == nil {
		reg = &Registry{}
	}
	o := &Orchestrator{
		registry: reg,
		log:      zap.NewNop(),
		observer: NoopObserver{},
		sleep:    SleepContext,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the registry the orchestrator resolves through
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Run executes wf for req. The error is reserved for workflows that fail
// validation; step failures are reported through the RunResult.
func (o *Orchestrator) Run(
	ctx context.Context, wf *Workflow, req Request,
) (*RunResult, error) {
	if err := wf.Validate(o.registry); err != nil {
		return nil, err
	}

	r := &run{
		Orchestrator: o,
		id:           o.newID(),
		wf:           wf,
		req:          req,
		ec:           NewExecutionContext(),
	}
	r.log = o.log.With(
		zap.String("run_id", r.id),
		zap.String("workflow", wf.ID),
		zap.String("mode", string(wf.Mode())),
	)
	return r.execute(ctx), nil
}

func (r *run) execute(ctx context.Context) *RunResult {
	res := &RunResult{
		RunID:      r.id,
		WorkflowID: r.wf.ID,
		Mode:       r.wf.Mode(),
		StartedAt:  r.now(),
	}
	r.log.Info("workflow started", zap.Int("steps", len(r.wf.Steps)))

	for idx, step := range r.wf.Steps {
		if err := ctx.Err(); err != nil {
			return r.cancelled(res, step.ID, err.Error())
		}

		if step.When != nil && !step.When(r.req, r.ec) {
			r.skipped = append(r.skipped, step.ID)
			r.emit(StepEvent{StepID: step.ID, Type: EventSkipped})
			r.log.Debug("step skipped", zap.String("step", step.ID))
			continue
		}

		out := r.executeStep(ctx, step)
		if out.ErrorKind == KindCancelled {
			return r.cancelled(res, step.ID, out.Error)
		}
		// A provider may report its own failure for a call cut short by cancellation
		if !out.Success && ctx.Err() != nil {
			return r.cancelled(res, step.ID, ctx.Err().Error())
		}
		_ = r.ec.record(out)
		if out.Success {
			continue
		}

		if r.wf.Mode() == Strict {
			res.FailedStepID = step.ID
			res.ErrorKind = out.ErrorKind
			res.Cause = out.Error
			res.CompensationLog = r.compensate(ctx, idx)
			return r.finish(res, StatusRolledBack)
		}
	}

	if r.wf.Mode() == Lenient {
		report := Aggregate(r.ec.Outcomes())
		res.Report = &report
	}
	return r.finish(res, StatusCompleted)
}

func (r *run) executeStep(ctx context.Context, step Step) Outcome {
	start := r.now()
	out := Outcome{StepID: step.ID}

	input, err := r.buildInput(step)
	if err != nil {
		out.ErrorKind = KindValidation
		out.Error = err.Error()
		out.Duration = r.now().Sub(start)
		r.emit(StepEvent{
			StepID: step.ID, Type: EventFailed, ErrorKind: KindValidation, Err: err,
		})
		r.log.Warn("step input could not be built",
			zap.String("step", step.ID), zap.Error(err))
		return out
	}

	provider, err := r.registry.Resolve(step.Capability)
	if err != nil {
		// validated up front, but the registry may have changed since
		out.ErrorKind = KindPermanent
		out.Error = err.Error()
		out.Duration = r.now().Sub(start)
		r.emit(StepEvent{
			StepID: step.ID, Type: EventFailed, ErrorKind: KindPermanent, Err: err,
		})
		return out
	}

	r.emit(StepEvent{StepID: step.ID, Type: EventStarted, Attempt: 1})
	inv := invokeWithRetry(ctx, provider, step.Capability.Operation, input,
		r.wf.Retry, r.sleep,
		func(attempt int, delay time.Duration, resp Response) {
			r.emit(StepEvent{
				StepID:    step.ID,
				Type:      EventRetrying,
				Attempt:   attempt,
				Delay:     delay,
				ErrorKind: resp.ErrorKind,
				Err:       resp.Err,
			})
			r.log.Info("retrying step",
				zap.String("step", step.ID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(resp.Err),
			)
		},
	)

	out.Attempts = inv.Attempts
	out.Duration = r.now().Sub(start)
	if inv.ErrorKind == KindNone {
		out.Success = true
		out.Value = inv.Value
		r.emit(StepEvent{
			StepID: step.ID, Type: EventSucceeded, Attempt: inv.Attempts,
		})
		r.log.Debug("step succeeded",
			zap.String("step", step.ID), zap.Int("attempts", inv.Attempts))
		return out
	}

	out.ErrorKind = inv.ErrorKind
	if inv.Err != nil {
		out.Error = inv.Err.Error()
	}
	if inv.ErrorKind != KindCancelled {
		r.emit(StepEvent{
			StepID:    step.ID,
			Type:      EventFailed,
			Attempt:   inv.Attempts,
			ErrorKind: inv.ErrorKind,
			Err:       inv.Err,
		})
		r.log.Warn("step failed",
			zap.String("step", step.ID),
			zap.String("error_kind", string(inv.ErrorKind)),
			zap.Int("attempts", inv.Attempts),
			zap.Error(inv.Err),
		)
	}
	return out
}

func (r *run) buildInput(step Step) (Input, error) {
	if step.Input == nil {
		return r.req, nil
	}
	return step.Input(r.req, r.ec)
}

func (r *run) cancelled(res *RunResult, stepID, cause string) *RunResult {
	res.FailedStepID = stepID
	res.ErrorKind = KindCancelled
	res.Cause = cause
	r.log.Warn("workflow cancelled",
		zap.String("step", stepID), zap.String("cause", cause))
	return r.finish(res, StatusCancelled)
}

func (r *run) finish(res *RunResult, status RunStatus) *RunResult {
	res.Status = status
	res.Outcomes = r.ec.Outcomes()
	res.Skipped = append([]string(nil), r.skipped...)
	res.FinishedAt = r.now()

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Int("executed", len(res.Outcomes)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	}
	if res.Report != nil {
		fields = append(fields,
			zap.Int("score", res.Report.Score),
			zap.Int("issues", res.Report.IssueCount),
		)
	}
	if res.FailedStepID != "" {
		fields = append(fields, zap.String("failed_step", res.FailedStepID))
	}
	r.log.Info("workflow finished", fields...)
	return res
}

func (r *run) emit(ev StepEvent) {
	ev.RunID = r.id
	ev.WorkflowID = r.wf.ID
	r.observer.StepEvent(ev)
}

// Failures returns the outcomes that did not succeed
func (res *RunResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range res.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome recorded for a step id
func (res *RunResult) Outcome(id string) (Outcome, bool) {
	for _, o := range res.Outcomes {
		if o.StepID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// Clean reports a completed run in which no step failed
func (res *RunResult) Clean() bool {
	return res.Status == StatusCompleted && len(res.Failures()) == 0
}

// Tolerated reports a completed lenient run that absorbed failures or
// issues
func (res *RunResult) Tolerated() bool {
	if res.Status != StatusCompleted || res.Mode != Lenient {
		return false
	}
	if len(res.Failures()) > 0 {
		return true
	}
	return res.Report != nil && res.Report.IssueCount > 0
}
