package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/output"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/tooling"
)

// Exit codes
const (
	ExitOK         = 0
	ExitError      = 1
	ExitRolledBack = 2
	ExitCancelled  = 3
)

var cfgFile string

// runStatusError reports a run that did not complete
type runStatusError struct {
	status orchestration.RunStatus
}

func (e *runStatusError) Error() string {
	return fmt.Sprintf("workflow run %s", e.status)
}

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Run declarative saga workflows against capability providers",
	Long: `go-app-orchestrator executes ordered, conditional workflows whose steps
invoke capability providers (ledger, rules, archive, scan, echo).

Strict workflows stop at the first terminal failure and undo completed steps
with their compensating actions in reverse order. Lenient workflows keep
going, record every failure and finish with a compliance score.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags are parsed by now, so bound flags override the config file
		if err := config.Initialize(cfgFile); err != nil {
			return err
		}
		return logger.InitLogger(logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		})
	},
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	var statusErr *runStatusError
	if stderrors.As(err, &statusErr) {
		if statusErr.status == orchestration.StatusCancelled {
			return ExitCancelled
		}
		return ExitRolledBack
	}
	if stderrors.Is(err, context.Canceled) {
		return ExitCancelled
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.LogError("Command execution failed", err, nil)
	return ExitError
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-format", "human", "Log format: json or human")
	flags.String("log-file", "", "Log file path")
	flags.StringP("output", "o", "table", "Output format: table, json, yaml or plist")
	flags.String("workflows-dir", "", "Directory holding workflow definitions")

	// Bind flags to config keys
	for key, name := range map[string]string{
		"debug":         "debug",
		"log_format":    "log-format",
		"log_file":      "log-file",
		"output.format": "output",
		"workflows.dir": "workflows-dir",
	} {
		cobra.CheckErr(config.BindFlag(key, flags.Lookup(name)))
	}

	rootCmd.AddCommand(runCmd, batchCmd, validateCmd, listCmd, versionCmd)
}

// newEngine builds an engine from the loaded configuration
func newEngine() (*tooling.Engine, error) {
	return tooling.NewEngine(&config.Instance, logger.Zap())
}

// outputFormat returns the configured output format
func outputFormat() (output.Format, error) {
	return output.ParseFormat(config.Instance.Output.Format)
}

// statusError converts an unsuccessful run status into an error
func statusError(results ...*orchestration.RunResult) error {
	worst := orchestration.StatusCompleted
	for _, res := range results {
		switch res.Status {
		case orchestration.StatusCancelled:
			worst = orchestration.StatusCancelled
		case orchestration.StatusRolledBack:
			if worst == orchestration.StatusCompleted {
				worst = orchestration.StatusRolledBack
			}
		}
	}
	if worst == orchestration.StatusCompleted {
		return nil
	}
	return &runStatusError{status: worst}
}
