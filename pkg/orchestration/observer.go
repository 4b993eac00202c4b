package orchestration

import (
	"time"

	"go.uber.org/zap"
)

type (
	// EventType identifies a step lifecycle event
	EventType string

	// StepEvent is emitted by the orchestrator as a run progresses
	StepEvent struct {
		RunID      string
		WorkflowID string
		StepID     string
		Type       EventType
		Attempt    int
		Delay      time.Duration
		ErrorKind  ErrorKind
		Err        error
	}

	// Observer receives step events. Implementations must be safe for
	// concurrent use when shared between runs.
	Observer interface {
		StepEvent(ev StepEvent)
	}

	// ObserverFunc adapts a function to the Observer interface
	ObserverFunc func(ev StepEvent)

	// NoopObserver discards every event
	NoopObserver struct{}

	// LogObserver writes events to a zap logger
	LogObserver struct {
		log *zap.Logger
	}
)

const (
	EventStarted            EventType = "started"
	EventSkipped            EventType = "skipped"
	EventRetrying           EventType = "retrying"
	EventSucceeded          EventType = "succeeded"
	EventFailed             EventType = "failed"
	EventCompensated        EventType = "compensated"
	EventCompensationFailed EventType = "compensation_failed"
)

func (f ObserverFunc) StepEvent(ev StepEvent) {
	f(ev)
}

func (NoopObserver) StepEvent(StepEvent) {}

// NewLogObserver creates an observer writing to log
func NewLogObserver(log *zap.Logger) *LogObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogObserver{log: log}
}

func (o *LogObserver) StepEvent(ev StepEvent) {
	fields := []zap.Field{
		zap.String("run_id", ev.RunID),
		zap.String("workflow", ev.WorkflowID),
		zap.String("step", ev.StepID),
		zap.String("event", string(ev.Type)),
	}
	if ev.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", ev.Attempt))
	}
	if ev.Delay > 0 {
		fields = append(fields, zap.Duration("delay", ev.Delay))
	}
	if ev.ErrorKind != KindNone {
		fields = append(fields, zap.String("error_kind", string(ev.ErrorKind)))
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}

	switch ev.Type {
	case EventFailed, EventCompensationFailed:
		o.log.Warn("step event", fields...)
	case EventStarted, EventRetrying:
		o.log.Debug("step event", fields...)
	default:
		o.log.Info("step event", fields...)
	}
}
