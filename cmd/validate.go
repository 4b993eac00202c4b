package cmd

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate WORKFLOW...",
	Short: "Check workflow definitions without running them",
	Long: `Load and validate workflow definitions: structure, expressions, templates
and that every capability resolves to a registered provider operation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		var failed []error
		for _, name := range args {
			wf, err := engine.LoadWorkflow(name)
			if err != nil {
				logger.LogError("Workflow validation failed", err, map[string]interface{}{
					"workflow": name,
				})
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", name, err)
				failed = append(failed, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s, %s, %d steps)\n",
				name, wf.ID, wf.Mode(), len(wf.Steps))
		}
		if len(failed) > 0 {
			return fmt.Errorf("%w: %d of %d workflows: %w",
				errors.ErrInvalidDefinition, len(failed), len(args), stderrors.Join(failed...))
		}
		return nil
	},
}
