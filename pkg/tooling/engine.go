package tooling

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/internal/definition"
	"github.com/deploymenttheory/go-app-orchestrator/internal/providers"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// Engine runs workflow files against the providers built from one
// configuration. It is safe for concurrent use.
type Engine struct {
	cfg          *config.AppConfig
	providers    *providers.Set
	orchestrator *orchestration.Orchestrator
	defaults     definition.Defaults
	log          *zap.Logger
}

// NewEngine builds the providers and orchestrator described by cfg.
// Extra orchestrator options are applied after the defaults.
func NewEngine(cfg *config.AppConfig, log *zap.Logger, opts ...orchestration.Option) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	retry, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.FailureMode()
	if err != nil {
		return nil, err
	}

	set, err := providers.New(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := set.Registry()
	if err != nil {
		return nil, err
	}

	base := []orchestration.Option{
		orchestration.WithLogger(log),
		orchestration.WithObserver(orchestration.NewLogObserver(log)),
	}
	return &Engine{
		cfg:          cfg,
		providers:    set,
		orchestrator: orchestration.New(reg, append(base, opts...)...),
		defaults:     definition.Defaults{FailureMode: mode, Retry: retry},
		log:          log,
	}, nil
}

// Providers returns the provider set the engine runs against
func (e *Engine) Providers() *providers.Set {
	return e.providers
}

// Registry returns the capability registry
func (e *Engine) Registry() *orchestration.Registry {
	return e.orchestrator.Registry()
}

// LoadWorkflow loads, builds and validates a workflow file. Every
// capability must resolve through the engine's registry.
func (e *Engine) LoadWorkflow(path string) (*orchestration.Workflow, error) {
	def, err := definition.LoadFile(e.ResolveWorkflowPath(path))
	if err != nil {
		return nil, err
	}
	return e.build(def)
}

// ParseWorkflow is LoadWorkflow for a definition held in memory
func (e *Engine) ParseWorkflow(data []byte, format string) (*orchestration.Workflow, error) {
	def, err := definition.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return e.build(def)
}

func (e *Engine) build(def *definition.Definition) (*orchestration.Workflow, error) {
	wf, err := definition.Build(def, e.defaults)
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(e.Registry()); err != nil {
		return nil, err
	}
	return wf, nil
}

// ResolveWorkflowPath finds a workflow by path, or by bare name inside the
// configured workflows directory
func (e *Engine) ResolveWorkflowPath(name string) string {
	if fsutil.FileExists(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	for _, ext := range definition.Extensions {
		candidate := filepath.Join(e.cfg.Workflows.Dir, name+ext)
		if fsutil.FileExists(candidate) {
			return candidate
		}
	}
	return name
}

// Run executes wf for req, bounded by the configured run timeout
func (e *Engine) Run(ctx context.Context, wf *orchestration.Workflow, req orchestration.Request) (*orchestration.RunResult, error) {
	if timeout := e.cfg.Orchestration.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := e.orchestrator.Run(ctx, wf, req)
	if err != nil {
		return nil, err
	}
	e.log.Info("Workflow run finished",
		zap.String("workflow", res.WorkflowID),
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.Status)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

// RunFile loads a workflow file and runs it for req
func (e *Engine) RunFile(ctx context.Context, path string, req orchestration.Request) (*orchestration.RunResult, error) {
	wf, err := e.LoadWorkflow(path)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, wf, req)
}

// RunBatch runs wf once per request as independent concurrent runs, at
// most max_concurrent_runs at a time. Results keep request order.
func (e *Engine) RunBatch(ctx context.Context, wf *orchestration.Workflow, reqs []orchestration.Request) ([]*orchestration.RunResult, error) {
	results := make([]*orchestration.RunResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if limit := e.cfg.Orchestration.MaxConcurrentRuns; limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			res, err := e.Run(gctx, wf, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// LoadRequest reads a request document. YAML and JSON are accepted; "-"
// reads standard input.
func LoadRequest(path string) (orchestration.Request, error) {
	if path != "-" {
		data, err := fsutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseRequest(data)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrFileReadError, err)
	}
	return ParseRequest(data)
}

// ParseRequest decodes a YAML or JSON request document. An empty
// document is an empty request.
func ParseRequest(data []byte) (orchestration.Request, error) {
	var req any
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrRequestParse, err)
	}
	if req == nil {
		req = map[string]any{}
	}
	return req, nil
}
