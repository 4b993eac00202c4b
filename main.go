package main

import (
	"os"

	"github.com/deploymenttheory/go-app-orchestrator/cmd"
	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
)

func main() {
	code := cmd.Execute()

	// Ensure logs are flushed before exit
	_ = logger.Sync()
	os.Exit(code)
}
