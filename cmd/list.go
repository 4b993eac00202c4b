package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/output"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/internal/definition"
)

var listCmd = &cobra.Command{
	Use:   "list [DIR]",
	Short: "List the workflow definitions in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		dir := config.Instance.Workflows.Dir
		if len(args) == 1 {
			dir = args[0]
		}

		loaded, err := definition.LoadDir(dir)
		if err != nil {
			return err
		}
		summaries := make([]output.WorkflowSummary, 0, len(loaded))
		for _, l := range loaded {
			s := output.WorkflowSummary{Path: l.Path}
			if l.Err != nil {
				s.Error = l.Err.Error()
			} else {
				s.ID = l.Definition.ID
				s.Name = l.Definition.Name
				s.Mode = l.Definition.FailureMode
				if s.Mode == "" {
					s.Mode = config.Instance.Orchestration.DefaultFailureMode
				}
				s.Steps = len(l.Definition.Steps)
			}
			summaries = append(summaries, s)
		}
		return output.Workflows(cmd.OutOrStdout(), format, summaries)
	},
}
