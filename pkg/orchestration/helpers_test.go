package orchestration_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// scriptedProvider answers each operation from a queue of responses, then
// repeats the last one. Every call is recorded in order.
type scriptedProvider struct {
	name string

	mu      sync.Mutex
	scripts map[string][]orchestration.Response
	calls   []call
	panics  map[string]bool
}

type call struct {
	op    string
	input any
}

func newProvider(name string) *scriptedProvider {
	return &scriptedProvider{
		name:    name,
		scripts: map[string][]orchestration.Response{},
		panics:  map[string]bool{},
	}
}

func (p *scriptedProvider) on(
	op string, responses ...orchestration.Response,
) *scriptedProvider {
	p.scripts[op] = responses
	return p
}

func (p *scriptedProvider) panicOn(op string) *scriptedProvider {
	p.scripts[op] = []orchestration.Response{{}}
	p.panics[op] = true
	return p
}

func (p *scriptedProvider) Name() string {
	return p.name
}

func (p *scriptedProvider) Supports(op string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.scripts[op]
	return ok
}

func (p *scriptedProvider) Invoke(
	_ context.Context, op string, input orchestration.Input,
) orchestration.Response {
	p.mu.Lock()
	p.calls = append(p.calls, call{op: op, input: input})
	queue := p.scripts[op]
	var resp orchestration.Response
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			p.scripts[op] = queue[1:]
		}
	}
	shouldPanic := p.panics[op]
	p.mu.Unlock()

	if shouldPanic {
		panic("boom: " + op)
	}
	return resp
}

func (p *scriptedProvider) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		res = append(res, c.op)
	}
	return res
}

func (p *scriptedProvider) count(op string) int {
	n := 0
	for _, o := range p.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func (p *scriptedProvider) inputOf(op string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c.op == op {
			return c.input
		}
	}
	return nil
}

// sleepRecorder is an instant Sleeper that remembers requested delays
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	hook   func()
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

var (
	errNetwork  = errors.New("network unreachable")
	errBusiness = errors.New("ledger rejected entry")
)

func ok(v any) orchestration.Response {
	return orchestration.Succeed(v)
}

func fail(kind orchestration.ErrorKind, err error) orchestration.Response {
	return orchestration.Fail(kind, err)
}

func step(id string, op string) orchestration.Step {
	return orchestration.Step{
		ID:         id,
		Capability: orchestration.Ref("svc", op),
	}
}

func withUndo(s orchestration.Step, op string) orchestration.Step {
	s.Compensation = &orchestration.Compensation{
		Capability: orchestration.Ref("svc", op),
	}
	return s
}

func newOrchestrator(
	p orchestration.Provider, opts ...orchestration.Option,
) *orchestration.Orchestrator {
	reg, err := orchestration.NewRegistry(p)
	if err != nil {
		panic(err)
	}
	rec := &sleepRecorder{}
	opts = append([]orchestration.Option{
		orchestration.WithSleeper(rec.sleep),
	}, opts...)
	return orchestration.New(reg, opts...)
}
