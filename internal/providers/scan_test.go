package providers

import (
	"context"
	stderrors "errors"
	"testing"

	vt "github.com/VirusTotal/vt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

const abcSHA256 = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func stubLookup(stats ScanStats, err error) (LookupFunc, *[]string) {
	var seen []string
	return func(_ context.Context, sha256 string) (ScanStats, error) {
		seen = append(seen, sha256)
		return stats, err
	}, &seen
}

func TestScanLookupClean(t *testing.T) {
	lookup, seen := stubLookup(ScanStats{Harmless: 60, Undetected: 10}, nil)
	s := NewScan(lookup)

	resp := s.Invoke(context.Background(), OpLookup, map[string]any{"content": "abc"})
	require.True(t, resp.Success, resp.Err)
	assert.Equal(t, []string{abcSHA256}, *seen)

	value := resp.Value.(map[string]any)
	assert.Equal(t, true, value["found"])
	assert.Empty(t, value["issues"])
}

func TestScanLookupDetectionsBecomeIssues(t *testing.T) {
	lookup, _ := stubLookup(ScanStats{Malicious: 3, Suspicious: 1}, nil)
	resp := NewScan(lookup).Invoke(context.Background(), OpLookup,
		map[string]any{"digest": "sha256:" + abcSHA256})
	require.True(t, resp.Success, resp.Err)

	report := orchestration.Aggregate([]orchestration.Outcome{{StepID: "scan", Success: true, Value: resp.Value}})
	assert.Equal(t, 1, report.IssueCount)
	assert.Equal(t, 95, report.Score)
}

func TestScanErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		clean bool
		kind  orchestration.ErrorKind
		is    error
	}{
		{"not found is clean", vt.Error{Code: vtNotFound}, true, orchestration.KindNone, nil},
		{"rate limited", vt.Error{Code: vtTooManyRequests}, false, orchestration.KindTransient, errors.ErrAPIRateLimitExceeded},
		{"quota", vt.Error{Code: vtQuotaExceeded}, false, orchestration.KindPermanent, errors.ErrAPIQuotaExceeded},
		{"wrong credentials", vt.Error{Code: vtWrongCreds}, false, orchestration.KindPermanent, errors.ErrAPIAuthenticationFailed},
		{"forbidden", vt.Error{Code: vtForbidden}, false, orchestration.KindPermanent, errors.ErrAPIAuthenticationFailed},
		{"other api error", vt.Error{Code: "InvalidArgumentError"}, false, orchestration.KindPermanent, nil},
		{"network", stderrors.New("dial tcp: connection refused"), false, orchestration.KindTransient, errors.ErrAPICommunicationError},
		{"missing key", errors.ErrAPIKeyMissing, false, orchestration.KindPermanent, errors.ErrAPIKeyMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup, _ := stubLookup(ScanStats{}, tt.err)
			resp := NewScan(lookup).Invoke(context.Background(), OpLookup,
				map[string]any{"digest": abcSHA256})
			assert.Equal(t, tt.clean, resp.Success)
			if tt.clean {
				assert.Equal(t, false, resp.Value.(map[string]any)["found"])
				return
			}
			assert.Equal(t, tt.kind, resp.ErrorKind)
			assert.ErrorIs(t, resp.Err, tt.err)
			if tt.is != nil {
				assert.ErrorIs(t, resp.Err, tt.is)
			}
		})
	}
}

func TestScanCancelledLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lookup, _ := stubLookup(ScanStats{}, context.Canceled)
	resp := NewScan(lookup).Invoke(ctx, OpLookup, map[string]any{"digest": abcSHA256})
	assert.Equal(t, orchestration.KindCancelled, resp.ErrorKind)
}

func TestScanRejectsBadDigests(t *testing.T) {
	lookup, seen := stubLookup(ScanStats{}, nil)
	s := NewScan(lookup)

	blake, err := cryptoutil.Digest(cryptoutil.BLAKE2b256, []byte("abc"))
	require.NoError(t, err)

	for _, input := range []map[string]any{
		{},
		{"digest": "not-hex"},
		{"digest": blake},
	} {
		resp := s.Invoke(context.Background(), OpLookup, input)
		assert.Equal(t, orchestration.KindValidation, resp.ErrorKind, input)
	}
	assert.Empty(t, *seen)
}

func TestVirusTotalScanWithoutKey(t *testing.T) {
	resp := NewVirusTotalScan("", "").Invoke(context.Background(), OpLookup,
		map[string]any{"digest": abcSHA256})
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, errors.ErrAPIKeyMissing)
}
