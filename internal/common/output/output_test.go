package output_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/output"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func rolledBack() *orchestration.RunResult {
	return &orchestration.RunResult{
		RunID:      "run-1",
		WorkflowID: "accounting-workflow",
		Mode:       orchestration.Strict,
		Status:     orchestration.StatusRolledBack,
		Outcomes: []orchestration.Outcome{
			{StepID: "create_journal_entry", Success: true, Value: map[string]any{"entry_id": "je-1"}, Attempts: 1},
			{StepID: "save_record", ErrorKind: orchestration.KindPermanent, Error: "ledger rejected", Attempts: 1},
		},
		Skipped:      []string{"generate_report"},
		FailedStepID: "save_record",
		ErrorKind:    orchestration.KindPermanent,
		Cause:        "ledger rejected",
		CompensationLog: []orchestration.CompensationEntry{
			{StepID: "create_journal_entry", OK: true, Duration: time.Millisecond},
		},
	}
}

func lenient() *orchestration.RunResult {
	return &orchestration.RunResult{
		RunID:      "run-2",
		WorkflowID: "compliance-workflow",
		Mode:       orchestration.Lenient,
		Status:     orchestration.StatusCompleted,
		Outcomes: []orchestration.Outcome{
			{StepID: "tax_compliance", Success: true, Attempts: 1},
		},
		Report: &orchestration.AggregateReport{
			Score:           95,
			IssueCount:      1,
			Recommendations: []string{"register for VAT"},
			NextActions:     []string{orchestration.ActionReviewIssues},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]output.Format{
		"":       output.FormatTable,
		"table":  output.FormatTable,
		"JSON":   output.FormatJSON,
		" yaml ": output.FormatYAML,
		"plist":  output.FormatPlist,
	} {
		got, err := output.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := output.ParseFormat("xml")
	assert.ErrorIs(t, err, errors.ErrUnsupportedOutputFormat)
}

func TestResultTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Result(&buf, output.FormatTable, rolledBack()))

	out := buf.String()
	assert.Contains(t, out, "accounting-workflow")
	assert.Contains(t, out, "rolled_back")
	assert.Contains(t, out, "create_journal_entry")
	assert.Contains(t, out, "generate_report")
	assert.Contains(t, out, "ledger rejected")
	assert.Contains(t, out, "Rollback")
}

func TestResultTableWithReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Result(&buf, output.FormatTable, lenient()))

	out := buf.String()
	assert.Contains(t, out, "95/100")
	assert.Contains(t, out, "register for VAT")
	assert.Contains(t, out, orchestration.ActionReviewIssues)
}

func TestResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Result(&buf, output.FormatJSON, rolledBack()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "rolled_back", doc["status"])
	assert.Equal(t, "save_record", doc["failed_step_id"])
	assert.Len(t, doc["compensation_log"], 1)
}

func TestResultYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Result(&buf, output.FormatYAML, lenient()))

	var doc struct {
		Status string `yaml:"status"`
		Report struct {
			Score int `yaml:"score"`
		} `yaml:"report"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, 95, doc.Report.Score)
}

func TestResultPlist(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Result(&buf, output.FormatPlist, rolledBack()))

	out := buf.String()
	assert.Contains(t, out, "<plist")
	assert.Contains(t, out, "<string>rolled_back</string>")
}

func TestResultsBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Results(&buf, output.FormatTable,
		[]*orchestration.RunResult{rolledBack(), lenient()}))

	out := buf.String()
	assert.Contains(t, out, "2 runs")
	assert.Contains(t, out, "1 completed")
	assert.Contains(t, out, "1 rolled_back")
}

func TestWorkflows(t *testing.T) {
	list := []output.WorkflowSummary{
		{ID: "accounting-workflow", Name: "Accounting", Mode: "strict", Steps: 4, Path: "a.yaml"},
		{Path: "broken.yaml", Error: "parse error"},
	}

	var buf bytes.Buffer
	require.NoError(t, output.Workflows(&buf, output.FormatTable, list))
	assert.Contains(t, buf.String(), "accounting-workflow")
	assert.Contains(t, buf.String(), "parse error")

	buf.Reset()
	require.NoError(t, output.Workflows(&buf, output.FormatJSON, list))
	var doc []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc, 2)
}
