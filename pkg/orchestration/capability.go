package orchestration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type (
	// Request is the original request a run was started with. The core never
	// inspects it; input builders and predicates do.
	Request any

	// Input is the opaque payload handed to a capability provider
	Input any

	// CapabilityRef names a provider and one operation it must support
	CapabilityRef struct {
		Provider  string `json:"provider" yaml:"provider"`
		Operation string `json:"operation" yaml:"operation"`
	}

	// Response is the uniform result of a capability invocation
	Response struct {
		Success   bool
		Value     any
		ErrorKind ErrorKind
		Err       error
	}

	// Provider is implemented by every capability provider. Providers must be
	// safe for concurrent invocation by independent runs.
	Provider interface {
		Name() string
		Supports(operation string) bool
		Invoke(ctx context.Context, operation string, input Input) Response
	}

	// InvokeFunc is the function form of a single provider operation
	InvokeFunc func(ctx context.Context, input Input) Response

	// FuncProvider adapts a set of functions into a Provider
	FuncProvider struct {
		name string
		ops  map[string]InvokeFunc
	}

	// Registry resolves capability references to providers. It is built
	// by the caller and handed to the Orchestrator at construction.
	Registry struct {
		mu        sync.RWMutex
		providers map[string]Provider
	}
)

// Ref builds a CapabilityRef
func Ref(provider, operation string) CapabilityRef {
	return CapabilityRef{Provider: provider, Operation: operation}
}

// ParseCapabilityRef parses the "provider.operation" form
func ParseCapabilityRef(s string) (CapabilityRef, error) {
	provider, op, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || provider == "" || op == "" {
		return CapabilityRef{}, fmt.Errorf("%w: %q (expected provider.operation)",
			ErrInvalidCapabilityRef, s)
	}
	return CapabilityRef{Provider: provider, Operation: op}, nil
}

func (r CapabilityRef) String() string {
	return r.Provider + "." + r.Operation
}

// IsZero reports whether the reference is unset
func (r CapabilityRef) IsZero() bool {
	return r.Provider == "" && r.Operation == ""
}

// Succeed builds a successful Response
func Succeed(value any) Response {
	return Response{Success: true, Value: value}
}

// Fail builds a failed Response. An invalid kind is classified from err.
func Fail(kind ErrorKind, err error) Response {
	if !kind.Valid() {
		kind = KindOf(err)
	}
	if kind == KindNone {
		kind = KindPermanent
	}
	return Response{ErrorKind: kind, Err: err}
}

// FailWith classifies err and builds a failed Response from it
func FailWith(err error) Response {
	return Fail(KindOf(err), err)
}

// NewFuncProvider creates a Provider from named operation functions
func NewFuncProvider(name string, ops map[string]InvokeFunc) *FuncProvider {
	cp := make(map[string]InvokeFunc, len(ops))
	for k, v := range ops {
		cp[k] = v
	}
	return &FuncProvider{name: name, ops: cp}
}

func (p *FuncProvider) Name() string {
	return p.name
}

func (p *FuncProvider) Supports(operation string) bool {
	_, ok := p.ops[operation]
	return ok
}

func (p *FuncProvider) Invoke(
	ctx context.Context, operation string, input Input,
) Response {
	fn, ok := p.ops[operation]
	if !ok {
		return Fail(KindPermanent, fmt.Errorf("%w: %s.%s",
			ErrUnsupportedOperation, p.name, operation))
	}
	return fn(ctx, input)
}

// NewRegistry creates a Registry holding the given providers
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider under its own name
func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: provider must have a name", ErrUnknownProvider)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	if _, ok := r.providers[p.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

// Resolve returns the provider for ref, verifying it supports the
// referenced operation
func (r *Registry) Resolve(ref CapabilityRef) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[ref.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, ref.Provider)
	}
	if !p.Supports(ref.Operation) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, ref)
	}
	return p, nil
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.providers))
	for name := range r.providers {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
