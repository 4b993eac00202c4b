package providers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%04d", n)
	}
}

func TestLedgerJournalEntryLifecycle(t *testing.T) {
	l := NewLedger(WithLedgerIDs(sequentialIDs()))
	ctx := context.Background()

	resp := l.Invoke(ctx, OpCreateJournalEntry, map[string]any{
		"description":      "Office supplies",
		"amount":           120.5,
		"transaction_type": "expense",
		"category":         "supplies",
		"date":             "2024-04-01",
	})
	require.True(t, resp.Success, resp.Err)

	value := resp.Value.(map[string]any)
	assert.Equal(t, "je-0001", value["entry_id"])

	entries := l.JournalEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, []JournalLine{
		{Account: "expenses:supplies", Debit: 120.5},
		{Account: "cash", Credit: 120.5},
	}, entries[0].Lines)

	resp = l.Invoke(ctx, OpDeleteJournalEntry, map[string]any{"entry_id": "je-0001"})
	require.True(t, resp.Success, resp.Err)
	assert.Empty(t, l.JournalEntries())

	resp = l.Invoke(ctx, OpDeleteJournalEntry, map[string]any{"entry_id": "je-0001"})
	assert.False(t, resp.Success)
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, errors.ErrEntryNotFound)
}

func TestLedgerRejectsInvalidEntries(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	tests := []struct {
		name  string
		input any
	}{
		{"missing description", map[string]any{"amount": 10, "transaction_type": "income"}},
		{"zero amount", map[string]any{"description": "x", "amount": 0, "transaction_type": "income"}},
		{"unknown type", map[string]any{"description": "x", "amount": 1, "transaction_type": "barter"}},
		{"transfer without accounts", map[string]any{"description": "x", "amount": 1, "transaction_type": "transfer"}},
		{"not an object", "journal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := l.Invoke(ctx, OpCreateJournalEntry, tt.input)
			assert.False(t, resp.Success)
			assert.Equal(t, orchestration.KindValidation, resp.ErrorKind)
		})
	}
	assert.Empty(t, l.JournalEntries())
}

func TestLedgerRecords(t *testing.T) {
	l := NewLedger(WithLedgerIDs(sequentialIDs()))
	ctx := context.Background()

	resp := l.Invoke(ctx, OpSaveRecord, map[string]any{
		"collection": "transactions",
		"data":       map[string]any{"companyId": "c-1"},
	})
	require.True(t, resp.Success, resp.Err)
	id := resp.Value.(map[string]any)["record_id"].(string)
	assert.Equal(t, "rec-0001", id)

	resp = l.Invoke(ctx, OpGetRecord, map[string]any{"collection": "transactions", "record_id": id})
	require.True(t, resp.Success, resp.Err)
	assert.Equal(t, map[string]any{"companyId": "c-1"}, resp.Value.(map[string]any)["data"])

	resp = l.Invoke(ctx, OpListRecords, map[string]any{"collection": "transactions"})
	require.True(t, resp.Success, resp.Err)
	assert.Equal(t, 1, resp.Value.(map[string]any)["count"])

	resp = l.Invoke(ctx, OpDeleteRecord, map[string]any{"collection": "transactions", "record_id": id})
	require.True(t, resp.Success, resp.Err)
	_, ok := l.Record("transactions", id)
	assert.False(t, ok)

	resp = l.Invoke(ctx, OpGetRecord, map[string]any{"collection": "transactions", "record_id": id})
	assert.ErrorIs(t, resp.Err, errors.ErrRecordNotFound)
}

func TestLedgerFailureInjection(t *testing.T) {
	l := NewLedger(
		WithFailOn(OpSaveRecord, orchestration.KindPermanent),
		WithFailOn(OpGetRecord, orchestration.KindTransient),
	)
	ctx := context.Background()

	resp := l.Invoke(ctx, OpSaveRecord, map[string]any{"collection": "transactions"})
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, errors.ErrLedgerRejected)
	assert.Empty(t, l.Records("transactions"))

	resp = l.Invoke(ctx, OpGetRecord, map[string]any{"collection": "transactions", "record_id": "x"})
	assert.Equal(t, orchestration.KindTransient, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, errors.ErrLedgerOffline)
}

func TestLedgerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := NewLedger().Invoke(ctx, OpSaveRecord, map[string]any{"collection": "x"})
	assert.Equal(t, orchestration.KindCancelled, resp.ErrorKind)
}
