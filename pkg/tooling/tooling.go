// Package tooling is the embedding API: it initializes configuration and
// logging the way the CLI does and runs workflow files through an Engine.
package tooling

import (
	"context"
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// Version is the application version, overridden at build time
var Version = "0.1.0"

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile  string // Path to configuration file
	Debug       bool   // Enable debug logging
	LogFormat   string // Log format: "human" or "json"
	LogFile     string // Path to log file
	SuppressLog bool   // Suppress all logging
}

var (
	mu     sync.Mutex
	engine *Engine
)

// DefaultOptions returns the default initialization options
func DefaultOptions() InitOptions {
	return InitOptions{
		LogFormat: "human",
	}
}

// Initialize loads configuration, sets up logging and builds the shared
// engine. Later calls are no-ops.
func Initialize(options InitOptions) error {
	mu.Lock()
	defer mu.Unlock()
	if engine != nil {
		return nil
	}

	configErr := config.Initialize(options.ConfigFile)

	// Options override the loaded configuration
	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}

	if !options.SuppressLog {
		logConfig := logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}
		if err := logger.InitLogger(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	if configErr != nil {
		logger.LogWarn("Configuration initialization warning", map[string]interface{}{
			"error": configErr.Error(),
		})
	}

	e, err := NewEngine(&config.Instance, logger.Zap())
	if err != nil {
		return err
	}
	engine = e

	logger.LogInfo("Tooling API initialized", map[string]interface{}{
		"config_file": config.ConfigFile,
		"providers":   e.Registry().Names(),
	})
	return nil
}

// Default returns the engine built by Initialize
func Default() (*Engine, error) {
	mu.Lock()
	defer mu.Unlock()
	if engine == nil {
		return nil, fmt.Errorf("%w: tooling API", errors.ErrNotInitialized)
	}
	return engine, nil
}

func ensureEngine() (*Engine, error) {
	if err := Initialize(DefaultOptions()); err != nil {
		return nil, fmt.Errorf("failed to initialize tooling API: %w", err)
	}
	return Default()
}

// ExecuteWorkflow runs the workflow defined in a file
func ExecuteWorkflow(ctx context.Context, workflowFile string, req orchestration.Request) (*orchestration.RunResult, error) {
	e, err := ensureEngine()
	if err != nil {
		return nil, err
	}
	logger.LogInfo("Executing workflow", map[string]interface{}{
		"file": workflowFile,
	})
	return e.RunFile(ctx, workflowFile, req)
}

// ExecuteWorkflowFromYAML runs a workflow defined in a YAML string
func ExecuteWorkflowFromYAML(ctx context.Context, workflowYAML string, req orchestration.Request) (*orchestration.RunResult, error) {
	e, err := ensureEngine()
	if err != nil {
		return nil, err
	}
	wf, err := e.ParseWorkflow([]byte(workflowYAML), "yaml")
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, wf, req)
}

// GetVersion returns the current version of the tooling API
func GetVersion() string {
	return Version
}

// Shutdown flushes logs and releases the shared engine
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if engine == nil {
		return nil
	}
	logger.LogInfo("Tooling API shutting down", nil)
	engine = nil
	_ = logger.Sync()
	return nil
}
