package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/output"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/tooling"
)

var batchWorkflowFile string

var batchCmd = &cobra.Command{
	Use:   "batch REQUEST...",
	Short: "Run a workflow for many requests concurrently",
	Long: `Run one workflow for every request file given. Runs are independent and
execute concurrently, at most orchestration.max_concurrent_runs at a time.
Results are printed in argument order.`,
	Example: `  go-app-orchestrator batch -w accounting examples/requests/*.yaml --parallel 4`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}
		wf, err := engine.LoadWorkflow(batchWorkflowFile)
		if err != nil {
			return err
		}

		reqs := make([]orchestration.Request, 0, len(args))
		for _, path := range args {
			req, err := tooling.LoadRequest(path)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		logger.LogInfo("Executing workflow batch", map[string]interface{}{
			"workflow": wf.ID,
			"requests": len(reqs),
			"parallel": config.Instance.Orchestration.MaxConcurrentRuns,
		})
		results, err := engine.RunBatch(ctx, wf, reqs)
		if err != nil {
			return err
		}
		if err := output.Results(cmd.OutOrStdout(), format, results); err != nil {
			return err
		}
		return statusError(results...)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchWorkflowFile, "workflow", "w", "", "workflow file or name (required)")
	batchCmd.Flags().Int("parallel", 0, "maximum concurrent runs (default: number of CPUs)")
	_ = batchCmd.MarkFlagRequired("workflow")
	cobra.CheckErr(config.BindFlag("orchestration.max_concurrent_runs", batchCmd.Flags().Lookup("parallel")))
}
