package providers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// LedgerName is the registry name of the ledger provider
const LedgerName = "ledger"

// Ledger operations
const (
	OpCreateJournalEntry = "create_journal_entry"
	OpDeleteJournalEntry = "delete_journal_entry"
	OpSaveRecord         = "save_record"
	OpDeleteRecord       = "delete_record"
	OpGetRecord          = "get_record"
	OpListRecords        = "list_records"
)

type (
	// JournalLine is one side of a double-entry posting
	JournalLine struct {
		Account string  `json:"account"`
		Debit   float64 `json:"debit"`
		Credit  float64 `json:"credit"`
	}

	// JournalEntry is a balanced set of journal lines
	JournalEntry struct {
		ID          string        `json:"entry_id"`
		Description string        `json:"description"`
		Date        string        `json:"date"`
		Category    string        `json:"category,omitempty"`
		Amount      float64       `json:"amount"`
		Lines       []JournalLine `json:"lines"`
		CreatedAt   time.Time     `json:"created_at"`
	}

	// Record is a stored document in a named collection
	Record struct {
		ID         string         `json:"record_id"`
		Collection string         `json:"collection"`
		Data       map[string]any `json:"data"`
		CreatedAt  time.Time      `json:"created_at"`
	}

	// Ledger is an in-memory journal and record store. Operations listed
	// in the failure set fail before touching state, which makes rollback
	// paths reproducible.
	Ledger struct {
		mu      sync.RWMutex
		entries map[string]JournalEntry
		records map[string]map[string]Record
		failOn  map[string]orchestration.ErrorKind
		newID   func() string
		now     func() time.Time
	}

	// LedgerOption configures a Ledger
	LedgerOption func(*Ledger)

	entryInput struct {
		Description     string  `mapstructure:"description"`
		Amount          float64 `mapstructure:"amount"`
		TransactionType string  `mapstructure:"transaction_type"`
		Date            string  `mapstructure:"date"`
		Category        string  `mapstructure:"category"`
		DebitAccount    string  `mapstructure:"debit_account"`
		CreditAccount   string  `mapstructure:"credit_account"`
	}

	recordInput struct {
		Collection string         `mapstructure:"collection"`
		RecordID   string         `mapstructure:"record_id"`
		Data       map[string]any `mapstructure:"data"`
	}
)

// WithFailOn makes op fail with kind on every call
func WithFailOn(op string, kind orchestration.ErrorKind) LedgerOption {
	return func(l *Ledger) {
		l.failOn[op] = kind
	}
}

// WithLedgerIDs replaces the id generator
func WithLedgerIDs(gen func() string) LedgerOption {
	return func(l *Ledger) {
		l.newID = gen
	}
}

// NewLedger creates an empty ledger
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		entries: map[string]JournalEntry{},
		records: map[string]map[string]Record{},
		failOn:  map[string]orchestration.ErrorKind{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Name() string {
	return LedgerName
}

func (l *Ledger) Supports(operation string) bool {
	switch operation {
	case OpCreateJournalEntry, OpDeleteJournalEntry,
		OpSaveRecord, OpDeleteRecord, OpGetRecord, OpListRecords:
		return true
	}
	return false
}

func (l *Ledger) Invoke(
	ctx context.Context, operation string, input orchestration.Input,
) orchestration.Response {
	if err := ctx.Err(); err != nil {
		return orchestration.Fail(orchestration.KindCancelled, err)
	}
	if kind, ok := l.failOn[operation]; ok {
		return orchestration.Fail(kind, injectedFailure(operation, kind))
	}

	switch operation {
	case OpCreateJournalEntry:
		return l.createJournalEntry(input)
	case OpDeleteJournalEntry:
		return l.deleteJournalEntry(input)
	case OpSaveRecord:
		return l.saveRecord(input)
	case OpDeleteRecord:
		return l.deleteRecord(input)
	case OpGetRecord:
		return l.getRecord(input)
	case OpListRecords:
		return l.listRecords(input)
	}
	return orchestration.Fail(orchestration.KindPermanent,
		fmt.Errorf("%w: %s.%s", orchestration.ErrUnsupportedOperation, LedgerName, operation))
}

func injectedFailure(op string, kind orchestration.ErrorKind) error {
	if kind == orchestration.KindTransient {
		return fmt.Errorf("%w: %s", errors.ErrLedgerOffline, op)
	}
	return fmt.Errorf("%w: %s", errors.ErrLedgerRejected, op)
}

func (l *Ledger) createJournalEntry(input orchestration.Input) orchestration.Response {
	var in entryInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("description", in.Description); err != nil {
		return invalid(err)
	}
	if in.Amount <= 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return invalid(fmt.Errorf("%w: amount must be positive, got %v",
			errors.ErrInvalidArgument, in.Amount))
	}
	lines, err := postingLines(in)
	if err != nil {
		return invalid(err)
	}

	entry := JournalEntry{
		ID:          "je-" + l.newID(),
		Description: in.Description,
		Date:        in.Date,
		Category:    in.Category,
		Amount:      in.Amount,
		Lines:       lines,
		CreatedAt:   l.now().UTC(),
	}
	l.mu.Lock()
	l.entries[entry.ID] = entry
	l.mu.Unlock()

	return orchestration.Succeed(entry.value())
}

// postingLines derives a balanced debit/credit pair from the transaction
// type. Explicit accounts override the derived ones.
func postingLines(in entryInput) ([]JournalLine, error) {
	var debit, credit string
	switch strings.ToLower(in.TransactionType) {
	case "income":
		debit, credit = "cash", "revenue"
	case "expense":
		debit, credit = "expenses", "cash"
		if in.Category != "" {
			debit = "expenses:" + in.Category
		}
	case "transfer", "":
		debit, credit = in.DebitAccount, in.CreditAccount
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q",
			errors.ErrInvalidArgument, in.TransactionType)
	}
	if in.DebitAccount != "" {
		debit = in.DebitAccount
	}
	if in.CreditAccount != "" {
		credit = in.CreditAccount
	}
	if debit == "" || credit == "" {
		return nil, fmt.Errorf("%w: debit_account and credit_account", errors.ErrMissingField)
	}

	lines := []JournalLine{
		{Account: debit, Debit: in.Amount},
		{Account: credit, Credit: in.Amount},
	}
	var balance float64
	for _, line := range lines {
		balance += line.Debit - line.Credit
	}
	if balance != 0 {
		return nil, errors.ErrUnbalancedEntry
	}
	return lines, nil
}

func (l *Ledger) deleteJournalEntry(input orchestration.Input) orchestration.Response {
	var in struct {
		EntryID string `mapstructure:"entry_id"`
	}
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("entry_id", in.EntryID); err != nil {
		return invalid(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[in.EntryID]; !ok {
		return orchestration.Fail(orchestration.KindPermanent,
			fmt.Errorf("%w: %s", errors.ErrEntryNotFound, in.EntryID))
	}
	delete(l.entries, in.EntryID)
	return orchestration.Succeed(map[string]any{"entry_id": in.EntryID, "deleted": true})
}

func (l *Ledger) saveRecord(input orchestration.Input) orchestration.Response {
	var in recordInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("collection", in.Collection); err != nil {
		return invalid(err)
	}

	rec := Record{
		ID:         in.RecordID,
		Collection: in.Collection,
		Data:       in.Data,
		CreatedAt:  l.now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = "rec-" + l.newID()
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}

	l.mu.Lock()
	coll, ok := l.records[rec.Collection]
	if !ok {
		coll = map[string]Record{}
		l.records[rec.Collection] = coll
	}
	coll[rec.ID] = rec
	l.mu.Unlock()

	return orchestration.Succeed(map[string]any{
		"record_id":  rec.ID,
		"collection": rec.Collection,
	})
}

func (l *Ledger) deleteRecord(input orchestration.Input) orchestration.Response {
	var in recordInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("collection", in.Collection); err != nil {
		return invalid(err)
	}
	if err := required("record_id", in.RecordID); err != nil {
		return invalid(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[in.Collection][in.RecordID]; !ok {
		return orchestration.Fail(orchestration.KindPermanent,
			fmt.Errorf("%w: %s/%s", errors.ErrRecordNotFound, in.Collection, in.RecordID))
	}
	delete(l.records[in.Collection], in.RecordID)
	return orchestration.Succeed(map[string]any{"record_id": in.RecordID, "deleted": true})
}

func (l *Ledger) getRecord(input orchestration.Input) orchestration.Response {
	var in recordInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("collection", in.Collection); err != nil {
		return invalid(err)
	}
	if err := required("record_id", in.RecordID); err != nil {
		return invalid(err)
	}

	rec, ok := l.Record(in.Collection, in.RecordID)
	if !ok {
		return orchestration.Fail(orchestration.KindPermanent,
			fmt.Errorf("%w: %s/%s", errors.ErrRecordNotFound, in.Collection, in.RecordID))
	}
	return orchestration.Succeed(rec.value())
}

func (l *Ledger) listRecords(input orchestration.Input) orchestration.Response {
	var in recordInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("collection", in.Collection); err != nil {
		return invalid(err)
	}

	recs := l.Records(in.Collection)
	values := make([]any, 0, len(recs))
	for _, rec := range recs {
		values = append(values, rec.value())
	}
	return orchestration.Succeed(map[string]any{
		"collection": in.Collection,
		"count":      len(values),
		"records":    values,
	})
}

// JournalEntries returns the current entries ordered by creation time
func (l *Ledger) JournalEntries() []JournalEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]JournalEntry, 0, len(l.entries))
	for _, e := range l.entries {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// Record returns one stored record
func (l *Ledger) Record(collection, id string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[collection][id]
	return rec, ok
}

// Records returns the records of a collection ordered by id
func (l *Ledger) Records(collection string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]Record, 0, len(l.records[collection]))
	for _, rec := range l.records[collection] {
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (e JournalEntry) value() map[string]any {
	lines := make([]any, 0, len(e.Lines))
	for _, line := range e.Lines {
		lines = append(lines, map[string]any{
			"account": line.Account,
			"debit":   line.Debit,
			"credit":  line.Credit,
		})
	}
	return map[string]any{
		"entry_id":    e.ID,
		"description": e.Description,
		"date":        e.Date,
		"category":    e.Category,
		"amount":      e.Amount,
		"lines":       lines,
		"created_at":  e.CreatedAt.Format(time.RFC3339),
	}
}

func (r Record) value() map[string]any {
	return map[string]any{
		"record_id":  r.ID,
		"collection": r.Collection,
		"data":       r.Data,
		"created_at": r.CreatedAt.Format(time.RFC3339),
	}
}
