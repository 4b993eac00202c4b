package providers

import (
	"context"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// EchoName is the registry name of the echo provider
const EchoName = "echo"

// NewEcho returns a provider whose single operation, "echo", returns its
// input unchanged. It stands in for notification and reporting steps.
func NewEcho() *orchestration.FuncProvider {
	return orchestration.NewFuncProvider(EchoName, map[string]orchestration.InvokeFunc{
		"echo": func(_ context.Context, input orchestration.Input) orchestration.Response {
			return orchestration.Succeed(input)
		},
	})
}
