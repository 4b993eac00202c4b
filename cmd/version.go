package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/tooling"
)

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", config.AppName, tooling.GetVersion())
	},
}
