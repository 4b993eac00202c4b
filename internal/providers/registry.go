package providers

import (
	"fmt"

	compression "github.com/deploymenttheory/go-app-orchestrator/internal/common/compressionutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// Set is the group of providers built from one configuration
type Set struct {
	Ledger  *Ledger
	Rules   *Rules
	Archive *Archive
	Scan    *Scan
	Echo    *orchestration.FuncProvider
}

// New builds every provider from cfg
func New(cfg *config.AppConfig) (*Set, error) {
	pc := cfg.Providers

	var ledgerOpts []LedgerOption
	if len(pc.Ledger.FailOn) > 0 {
		kind, err := orchestration.ParseErrorKind(pc.Ledger.FailKind)
		if err != nil {
			return nil, fmt.Errorf("%w: providers.ledger.fail_kind: %w", errors.ErrConfigInvalid, err)
		}
		for _, op := range pc.Ledger.FailOn {
			ledgerOpts = append(ledgerOpts, WithFailOn(op, kind))
		}
	}

	rules, err := NewRules(pc.Rules.Sets)
	if err != nil {
		return nil, err
	}

	format, err := compression.ParseFormat(pc.Archive.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: providers.archive.format: %w", errors.ErrConfigInvalid, err)
	}
	archive, err := NewArchive(pc.Archive.Dir, format, cryptoutil.HashAlgorithm(pc.Archive.Digest))
	if err != nil {
		return nil, fmt.Errorf("%w: providers.archive: %w", errors.ErrConfigInvalid, err)
	}

	apiKey := ""
	if pc.Scan.Enabled {
		apiKey = pc.Scan.APIKey
	}

	return &Set{
		Ledger:  NewLedger(ledgerOpts...),
		Rules:   rules,
		Archive: archive,
		Scan:    NewVirusTotalScan(apiKey, pc.Scan.Host),
		Echo:    NewEcho(),
	}, nil
}

// Registry returns a registry holding every provider of the set
func (s *Set) Registry() (*orchestration.Registry, error) {
	return orchestration.NewRegistry(s.Ledger, s.Rules, s.Archive, s.Scan, s.Echo)
}
