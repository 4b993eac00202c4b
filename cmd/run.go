package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/output"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/tooling"
)

var (
	runWorkflowFile string
	runRequestFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workflow for one request",
	Long: `Run a workflow definition for a single request document.

The workflow is a path or a name inside the workflows directory. The request
is a YAML or JSON file, or "-" for standard input. SIGINT and SIGTERM cancel
the run; a cancelled run is not compensated.`,
	Example: `  go-app-orchestrator run -w accounting -r examples/requests/transaction.yaml
  cat request.json | go-app-orchestrator run -w compliance -r - -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}
		wf, err := engine.LoadWorkflow(runWorkflowFile)
		if err != nil {
			return err
		}

		var req orchestration.Request = map[string]any{}
		if runRequestFile != "" {
			if req, err = tooling.LoadRequest(runRequestFile); err != nil {
				return err
			}
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		logger.LogInfo("Executing workflow", map[string]interface{}{
			"workflow": wf.ID,
			"mode":     string(wf.Mode()),
			"steps":    len(wf.Steps),
		})
		res, err := engine.Run(ctx, wf, req)
		if err != nil {
			return err
		}
		if err := output.Result(cmd.OutOrStdout(), format, res); err != nil {
			return err
		}
		return statusError(res)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runWorkflowFile, "workflow", "w", "", "workflow file or name (required)")
	runCmd.Flags().StringVarP(&runRequestFile, "request", "r", "", `request file, or "-" for stdin`)
	_ = runCmd.MarkFlagRequired("workflow")
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
