package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/osutil"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "go-app-orchestrator"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "APP_ORCHESTRATOR"
)

// RuleConfig declares one compliance rule. Expr is evaluated against the
// checked document; a rule whose expression is false becomes an issue.
type RuleConfig struct {
	Name           string `mapstructure:"name" yaml:"name"`
	Expr           string `mapstructure:"expr" yaml:"expr"`
	Message        string `mapstructure:"message" yaml:"message"`
	Recommendation string `mapstructure:"recommendation" yaml:"recommendation"`
	Severity       string `mapstructure:"severity" yaml:"severity"`
}

// RetryConfig mirrors orchestration.RetryPolicy in config form
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	RetryableKinds    []string      `mapstructure:"retryable_kinds"`
}

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Orchestration settings
	Orchestration struct {
		DefaultFailureMode string        `mapstructure:"default_failure_mode"`
		Retry              RetryConfig   `mapstructure:"retry"`
		MaxConcurrentRuns  int           `mapstructure:"max_concurrent_runs"`
		RunTimeout         time.Duration `mapstructure:"run_timeout"`
	} `mapstructure:"orchestration"`

	// Capability provider settings
	Providers struct {
		Ledger struct {
			// FailOn lists operations that fail on purpose, for rollback drills
			FailOn   []string `mapstructure:"fail_on"`
			FailKind string   `mapstructure:"fail_kind"`
		} `mapstructure:"ledger"`

		Rules struct {
			Sets map[string][]RuleConfig `mapstructure:"sets"`
		} `mapstructure:"rules"`

		Archive struct {
			Dir    string `mapstructure:"dir"`
			Format string `mapstructure:"format"` // xz, bzip2, gzip
			Digest string `mapstructure:"digest"` // sha256, blake2b-256, ...
		} `mapstructure:"archive"`

		Scan struct {
			Enabled bool   `mapstructure:"enabled"`
			APIKey  string `mapstructure:"api_key"`
			Host    string `mapstructure:"host"`
		} `mapstructure:"scan"`
	} `mapstructure:"providers"`

	// Workflow definition settings
	Workflows struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"workflows"`

	// Output settings
	Output struct {
		Format string `mapstructure:"format"` // table, json, yaml, plist
	} `mapstructure:"output"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance behind Instance; flags are bound to it before Initialize
	v = viper.New()

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		var cfg *AppConfig
		cfg, err = load(v, cfgFile)
		if cfg == nil {
			return
		}
		Instance = *cfg
		ConfigFile = v.ConfigFileUsed()
		ConfigLoaded = ConfigFile != ""

		ensureDirectories()
	})

	return err
}

// Load reads configuration into a fresh AppConfig without touching the
// global Instance
func Load(cfgFile string) (*AppConfig, error) {
	return load(viper.New(), cfgFile)
}

// BindFlag binds a command line flag to a configuration key
func BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("%w: no flag for %s", errors.ErrInvalidArgument, key)
	}
	return v.BindPFlag(key, flag)
}

func load(v *viper.Viper, cfgFile string) (*AppConfig, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var readErr error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Only an error if the file was found but couldn't be read
			readErr = fmt.Errorf("%w: error reading config file: %w", errors.ErrConfigInvalid, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: error parsing config: %w", errors.ErrConfigInvalid, err)
	}
	for _, path := range []*string{&cfg.LogFile, &cfg.Providers.Archive.Dir, &cfg.Workflows.Dir} {
		expanded, err := fsutil.ExpandTilde(*path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err)
		}
		*path = expanded
	}
	return cfg, readErr
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	if logDir, err := fsutil.GetLogDir(AppName); err == nil {
		v.SetDefault("log_file", filepath.Join(logDir, "orchestrator.log"))
	} else {
		v.SetDefault("log_file", "logs/orchestrator.log")
	}

	// Orchestration defaults follow orchestration.DefaultRetryPolicy
	def := orchestration.DefaultRetryPolicy()
	v.SetDefault("orchestration.default_failure_mode", string(orchestration.Strict))
	v.SetDefault("orchestration.retry.max_retries", def.MaxRetries)
	v.SetDefault("orchestration.retry.backoff_multiplier", def.BackoffMultiplier)
	v.SetDefault("orchestration.retry.initial_delay", def.InitialDelay)
	v.SetDefault("orchestration.retry.max_delay", def.MaxDelay)
	v.SetDefault("orchestration.retry.retryable_kinds", []string{string(orchestration.KindTransient)})
	v.SetDefault("orchestration.max_concurrent_runs", osutil.GetNumCPU())
	v.SetDefault("orchestration.run_timeout", 5*time.Minute)

	// Provider defaults
	v.SetDefault("providers.ledger.fail_on", []string{})
	v.SetDefault("providers.ledger.fail_kind", string(orchestration.KindPermanent))
	if dataDir, err := fsutil.GetDataDir(AppName); err == nil {
		v.SetDefault("providers.archive.dir", filepath.Join(dataDir, "archive"))
	} else {
		v.SetDefault("providers.archive.dir", "archive")
	}
	v.SetDefault("providers.archive.format", "xz")
	v.SetDefault("providers.archive.digest", "blake2b-256")
	v.SetDefault("providers.scan.enabled", false)
	v.SetDefault("providers.scan.api_key", "")
	v.SetDefault("providers.scan.host", "")

	// Workflow and output defaults
	v.SetDefault("workflows.dir", "examples/workflows")
	v.SetDefault("output.format", "table")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	if osutil.IsDevEnvironment() {
		if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	if osutil.IsRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
		v.AddConfigPath(configDir)
	}
	if systemConfigDir, err := fsutil.GetSystemConfigDir(AppName); err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// ensureDirectories creates necessary directories based on configuration
func ensureDirectories() {
	// Don't create directories in a pipeline environment unless explicitly requested
	if osutil.IsRunningInPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}

	if Instance.LogFile != "" {
		_ = fsutil.CreateDirIfNotExists(filepath.Dir(Instance.LogFile))
	}
	if Instance.Providers.Archive.Dir != "" {
		_ = fsutil.CreateDirIfNotExists(Instance.Providers.Archive.Dir)
	}
}

// RetryPolicy converts the retry section into an orchestration.RetryPolicy
func (c *AppConfig) RetryPolicy() (orchestration.RetryPolicy, error) {
	r := c.Orchestration.Retry
	policy := orchestration.RetryPolicy{
		MaxRetries:        r.MaxRetries,
		BackoffMultiplier: r.BackoffMultiplier,
		InitialDelay:      r.InitialDelay,
		MaxDelay:          r.MaxDelay,
	}
	for _, s := range r.RetryableKinds {
		k, err := orchestration.ParseErrorKind(s)
		if err != nil {
			return orchestration.RetryPolicy{}, fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err)
		}
		policy.RetryableKinds = append(policy.RetryableKinds, k)
	}
	if err := policy.Validate(); err != nil {
		return orchestration.RetryPolicy{}, fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err)
	}
	return policy, nil
}

// FailureMode returns the configured default failure mode
func (c *AppConfig) FailureMode() (orchestration.FailureMode, error) {
	mode, err := orchestration.ParseFailureMode(c.Orchestration.DefaultFailureMode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err)
	}
	return mode, nil
}
