package logger_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/logger"
)

func TestInitLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	require.NoError(t, logger.InitLogger(logger.LoggerConfig{
		LogFormat: "json",
		LogFile:   path,
	}))

	logger.LogInfo("workflow finished", map[string]interface{}{"status": "completed"})
	logger.LogError("compensation failed", errors.New("ledger offline"), nil)
	logger.LogDebug("hidden at info level", nil)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"workflow finished"`)
	assert.Contains(t, out, `"status":"completed"`)
	assert.Contains(t, out, `"error":"ledger offline"`)
	assert.NotContains(t, out, "hidden at info level")
}

func TestZapSharesGlobalCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, logger.InitLogger(logger.LoggerConfig{
		Debug:     true,
		LogFormat: "json",
		LogFile:   path,
	}))

	logger.Zap().Debug("from the structured logger")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from the structured logger")
}
