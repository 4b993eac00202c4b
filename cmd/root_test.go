package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func TestStatusError(t *testing.T) {
	completed := &orchestration.RunResult{Status: orchestration.StatusCompleted}
	rolledBack := &orchestration.RunResult{Status: orchestration.StatusRolledBack}
	cancelled := &orchestration.RunResult{Status: orchestration.StatusCancelled}

	assert.NoError(t, statusError(completed, completed))

	var statusErr *runStatusError
	require.ErrorAs(t, statusError(completed, rolledBack), &statusErr)
	assert.Equal(t, orchestration.StatusRolledBack, statusErr.status)

	require.ErrorAs(t, statusError(cancelled, rolledBack), &statusErr)
	assert.Equal(t, orchestration.StatusCancelled, statusErr.status)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "batch", "validate", "list", "version"} {
		assert.True(t, names[want], want)
	}
}
