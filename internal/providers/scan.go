package providers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	vt "github.com/VirusTotal/vt-go"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// ScanName is the registry name of the scan provider
const ScanName = "scan"

// OpLookup looks a document digest up in VirusTotal
const OpLookup = "lookup"

// vt-go error codes the provider distinguishes
const (
	vtNotFound        = "NotFoundError"
	vtTooManyRequests = "TooManyRequestsError"
	vtQuotaExceeded   = "QuotaExceededError"
	vtWrongCreds      = "WrongCredentialsError"
	vtAuthRequired    = "AuthenticationRequiredError"
	vtForbidden       = "ForbiddenError"
)

type (
	// ScanStats is the engine verdict breakdown of a file report
	ScanStats struct {
		Malicious  int
		Suspicious int
		Harmless   int
		Undetected int
	}

	// LookupFunc fetches the analysis stats of a SHA-256 digest
	LookupFunc func(ctx context.Context, sha256 string) (ScanStats, error)

	// Scan checks document digests against VirusTotal file reports
	Scan struct {
		lookup LookupFunc
	}

	scanInput struct {
		Digest  string `mapstructure:"digest"`
		Content string `mapstructure:"content"`
	}
)

// NewScan creates a scan provider backed by lookup
func NewScan(lookup LookupFunc) *Scan {
	return &Scan{lookup: lookup}
}

// NewVirusTotalScan creates a scan provider using the VirusTotal API. An
// empty key yields a provider whose lookups fail as permanent errors.
func NewVirusTotalScan(apiKey, host string) *Scan {
	if apiKey == "" {
		return NewScan(func(context.Context, string) (ScanStats, error) {
			return ScanStats{}, errors.ErrAPIKeyMissing
		})
	}
	if host != "" {
		vt.SetHost(host)
	}
	client := vt.NewClient(apiKey)
	return NewScan(func(ctx context.Context, sha256 string) (ScanStats, error) {
		if err := ctx.Err(); err != nil {
			return ScanStats{}, err
		}
		obj, err := client.GetObject(vt.URL("files/%s", sha256))
		if err != nil {
			return ScanStats{}, err
		}
		return statsOf(obj), nil
	})
}

func statsOf(obj *vt.Object) ScanStats {
	var stats ScanStats
	raw, err := obj.Get("last_analysis_stats")
	if err != nil {
		return stats
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return stats
	}
	stats.Malicious = count(m["malicious"])
	stats.Suspicious = count(m["suspicious"])
	stats.Harmless = count(m["harmless"])
	stats.Undetected = count(m["undetected"])
	return stats
}

func count(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func (s *Scan) Name() string {
	return ScanName
}

func (s *Scan) Supports(operation string) bool {
	return operation == OpLookup
}

func (s *Scan) Invoke(
	ctx context.Context, operation string, input orchestration.Input,
) orchestration.Response {
	if operation != OpLookup {
		return orchestration.Fail(orchestration.KindPermanent,
			fmt.Errorf("%w: %s.%s", orchestration.ErrUnsupportedOperation, ScanName, operation))
	}
	var in scanInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}

	digest, err := sha256Of(in)
	if err != nil {
		return invalid(err)
	}

	stats, err := s.lookup(ctx, digest)
	found := true
	if err != nil {
		kind, clean, cause := classifyScanError(ctx, err)
		if !clean {
			return orchestration.Fail(kind, cause)
		}
		found = false
	}

	issues := []any{}
	if stats.Malicious > 0 || stats.Suspicious > 0 {
		issues = append(issues, map[string]any{
			"rule":     "malware",
			"severity": "error",
			"message": fmt.Sprintf("%d engines flag the document as malicious, %d as suspicious",
				stats.Malicious, stats.Suspicious),
			"recommendation": "Quarantine the document and request a clean copy from the sender.",
		})
	}
	return orchestration.Succeed(map[string]any{
		"digest":     "sha256:" + digest,
		"found":      found,
		"malicious":  stats.Malicious,
		"suspicious": stats.Suspicious,
		"harmless":   stats.Harmless,
		"undetected": stats.Undetected,
		"issues":     issues,
	})
}

// sha256Of returns the hex SHA-256 named by the input, hashing the
// content when no digest is given
func sha256Of(in scanInput) (string, error) {
	if in.Digest == "" {
		if in.Content == "" {
			return "", fmt.Errorf("%w: digest or content", errors.ErrMissingField)
		}
		hasher, err := cryptoutil.NewHasher(cryptoutil.SHA256)
		if err != nil {
			return "", err
		}
		return hasher.Hash([]byte(in.Content))
	}

	hash, alg := cryptoutil.ParseHashWithAlgorithm(in.Digest)
	if alg != "" && alg != cryptoutil.SHA256 {
		return "", fmt.Errorf("%w: %s digests cannot be looked up", errors.ErrInvalidHash, alg)
	}
	hash = strings.ToLower(hash)
	if !cryptoutil.IsHexDigest(hash, 32) {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidHash, in.Digest)
	}
	return hash, nil
}

// classifyScanError maps a lookup error to an error kind and wraps it in
// the matching API sentinel. An unknown file is not an error: it reports
// clean.
func classifyScanError(ctx context.Context, err error) (orchestration.ErrorKind, bool, error) {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
		return orchestration.KindCancelled, false, err
	}
	if stderrors.Is(err, errors.ErrAPIKeyMissing) {
		return orchestration.KindPermanent, false, err
	}

	var vtErr vt.Error
	if !stderrors.As(err, &vtErr) {
		// Anything that never produced an API answer is a network problem
		return orchestration.KindTransient, false, fmt.Errorf("%w: %w", errors.ErrAPICommunicationError, err)
	}
	switch vtErr.Code {
	case vtNotFound:
		return orchestration.KindNone, true, nil
	case vtTooManyRequests:
		return orchestration.KindTransient, false, fmt.Errorf("%w: %w", errors.ErrAPIRateLimitExceeded, err)
	case vtQuotaExceeded:
		return orchestration.KindPermanent, false, fmt.Errorf("%w: %w", errors.ErrAPIQuotaExceeded, err)
	case vtWrongCreds, vtAuthRequired, vtForbidden:
		return orchestration.KindPermanent, false, fmt.Errorf("%w: %w", errors.ErrAPIAuthenticationFailed, err)
	}
	return orchestration.KindPermanent, false, err
}
