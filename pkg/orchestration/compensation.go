package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CompensationEntry records one compensation attempt made during rollback
type CompensationEntry struct {
	StepID   string        `json:"step"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

var errNoCompensationInput = errors.New("compensation input could not be built")

// compensate walks the steps before failedIdx in reverse, giving every
// successful step that declares a compensation exactly one attempt. A
// failing compensation never stops the remaining ones.
func (r *run) compensate(ctx context.Context, failedIdx int) []CompensationEntry {
	// the rollback must finish even if the caller gives up on the run
	ctx = context.WithoutCancel(ctx)

	log := []CompensationEntry{}
	for i := failedIdx - 1; i >= 0; i-- {
		step := r.wf.Steps[i]
		if step.Compensation == nil || !r.ec.Succeeded(step.ID) {
			continue
		}
		entry := r.compensateStep(ctx, step)
		log = append(log, entry)
	}
	r.log.Info("rollback finished",
		zap.Int("compensations", len(log)),
		zap.Int("failed", countFailed(log)),
	)
	return log
}

func (r *run) compensateStep(ctx context.Context, step Step) CompensationEntry {
	start := r.now()
	entry := CompensationEntry{StepID: step.ID}
	err := r.invokeCompensation(ctx, step)
	entry.Duration = r.now().Sub(start)
	if err != nil {
		entry.Error = err.Error()
		r.emit(StepEvent{
			StepID:    step.ID,
			Type:      EventCompensationFailed,
			ErrorKind: KindOf(err),
			Err:       err,
		})
		r.log.Error("compensation failed",
			zap.String("step", step.ID), zap.Error(err))
		return entry
	}
	entry.OK = true
	r.emit(StepEvent{StepID: step.ID, Type: EventCompensated})
	r.log.Info("step compensated", zap.String("step", step.ID))
	return entry
}

func (r *run) invokeCompensation(ctx context.Context, step Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = WithKind(KindPermanent, panicError{p})
		}
	}()

	comp := step.Compensation
	provider, err := r.registry.Resolve(comp.Capability)
	if err != nil {
		return err
	}

	var input Input
	if comp.Input != nil {
		input, err = comp.Input(r.ec)
		if err != nil {
			return WithKind(KindValidation, errors.Join(errNoCompensationInput, err))
		}
	} else {
		input, _ = r.ec.Value(step.ID)
	}

	resp := provider.Invoke(ctx, comp.Capability.Operation, input)
	if resp.Success {
		return nil
	}
	if resp.Err == nil {
		return WithKind(resp.ErrorKind, errors.New(comp.Capability.String()+" failed"))
	}
	return WithKind(resp.ErrorKind, resp.Err)
}

func countFailed(log []CompensationEntry) int {
	n := 0
	for _, e := range log {
		if !e.OK {
			n++
		}
	}
	return n
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return "compensation panicked: " + fmt.Sprint(p.value)
}
