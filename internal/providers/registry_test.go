package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Providers.Archive.Dir = t.TempDir()
	return cfg
}

func TestNewBuildsRegistry(t *testing.T) {
	set, err := New(testConfig(t))
	require.NoError(t, err)

	reg, err := set.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{ArchiveName, EchoName, LedgerName, RulesName, ScanName}, reg.Names())

	_, err = reg.Resolve(orchestration.Ref(LedgerName, OpCreateJournalEntry))
	assert.NoError(t, err)
	_, err = reg.Resolve(orchestration.Ref(ArchiveName, "publish"))
	assert.ErrorIs(t, err, orchestration.ErrUnsupportedOperation)
}

func TestNewAppliesLedgerFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.Ledger.FailOn = []string{OpSaveRecord}
	cfg.Providers.Ledger.FailKind = "transient"

	set, err := New(cfg)
	require.NoError(t, err)
	resp := set.Ledger.Invoke(t.Context(), OpSaveRecord, map[string]any{"collection": "x"})
	assert.Equal(t, orchestration.KindTransient, resp.ErrorKind)

	cfg.Providers.Ledger.FailKind = "flaky"
	_, err = New(cfg)
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestNewRejectsBadArchiveSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.Archive.Format = "rar"
	_, err := New(cfg)
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}
