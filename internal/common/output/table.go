package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func resultTable(w io.Writer, res *orchestration.RunResult) error {
	fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
		text.FgHiBlue.Sprint("Workflow:"), res.WorkflowID,
		text.FgHiBlue.Sprint("Run:"), res.RunID,
		text.FgHiBlue.Sprint("Status:"), statusColor(res.Status).Sprint(res.Status),
	)

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Step", "Result", "Kind", "Attempts", "Duration", "Detail"})
	for i, o := range res.Outcomes {
		result := text.FgGreen.Sprint("ok")
		if !o.Success {
			result = text.FgRed.Sprint("failed")
		}
		t.AppendRow(table.Row{
			i + 1, o.StepID, result, kindString(o.ErrorKind), o.Attempts,
			o.Duration.Round(time.Microsecond), o.Error,
		})
	}
	for _, id := range res.Skipped {
		t.AppendRow(table.Row{"-", id, text.FgYellow.Sprint("skipped"), "", "", "", ""})
	}
	t.Render()

	if res.FailedStepID != "" {
		fmt.Fprintf(w, "%s %s (%s): %s\n",
			text.FgRed.Sprint("Stopped at"), res.FailedStepID, res.ErrorKind, res.Cause)
	}
	if len(res.CompensationLog) > 0 {
		ct := newTable(w)
		ct.SetTitle("Rollback")
		ct.AppendHeader(table.Row{"Step", "Compensated", "Error"})
		for _, e := range res.CompensationLog {
			ct.AppendRow(table.Row{e.StepID, e.OK, e.Error})
		}
		ct.Render()
	}
	if res.Report != nil {
		fmt.Fprintf(w, "%s %d/100  %s %d\n",
			text.FgHiBlue.Sprint("Score:"), res.Report.Score,
			text.FgHiBlue.Sprint("Issues:"), res.Report.IssueCount)
		for _, rec := range res.Report.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
		for _, action := range res.Report.NextActions {
			fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint(">"), action)
		}
	}
	return nil
}

func batchSummary(w io.Writer, results []*orchestration.RunResult) error {
	counts := map[orchestration.RunStatus]int{}
	for _, res := range results {
		counts[res.Status]++
	}
	parts := make([]string, 0, 3)
	for _, s := range []orchestration.RunStatus{
		orchestration.StatusCompleted,
		orchestration.StatusRolledBack,
		orchestration.StatusCancelled,
	} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	fmt.Fprintf(w, "\n%s %d runs: %s\n",
		text.FgHiBlue.Sprint("Total:"), len(results), strings.Join(parts, ", "))
	return nil
}

func workflowTable(w io.Writer, list []WorkflowSummary) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Mode", "Steps", "Path"})
	for _, s := range list {
		if s.Error != "" {
			t.AppendRow(table.Row{"-", text.FgRed.Sprint(s.Error), "", "", s.Path})
			continue
		}
		t.AppendRow(table.Row{s.ID, s.Name, s.Mode, s.Steps, s.Path})
	}
	t.Render()
	return nil
}

func statusColor(s orchestration.RunStatus) text.Colors {
	switch s {
	case orchestration.StatusCompleted:
		return text.Colors{text.FgGreen}
	case orchestration.StatusRolledBack:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}

func kindString(k orchestration.ErrorKind) string {
	if k == orchestration.KindNone {
		return ""
	}
	return string(k)
}
