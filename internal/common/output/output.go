// Package output renders run results and workflow listings for the CLI
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// Format selects how results are rendered
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlist Format = "plist"
)

// WorkflowSummary describes one loadable workflow definition
type WorkflowSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	Steps int    `json:"steps"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// ParseFormat parses an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatPlist:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedOutputFormat, s)
}

// Result renders a single run result
func Result(w io.Writer, f Format, res *orchestration.RunResult) error {
	if f == FormatTable {
		return resultTable(w, res)
	}
	return structured(w, f, res)
}

// Results renders the results of a batch, in request order
func Results(w io.Writer, f Format, results []*orchestration.RunResult) error {
	if f != FormatTable {
		return structured(w, f, results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := resultTable(w, res); err != nil {
			return err
		}
	}
	return batchSummary(w, results)
}

// Workflows renders a workflow listing
func Workflows(w io.Writer, f Format, list []WorkflowSummary) error {
	if f == FormatTable {
		return workflowTable(w, list)
	}
	return structured(w, f, list)
}

func structured(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, FormatPlist:
		doc, err := document(v)
		if err != nil {
			return err
		}
		if f == FormatPlist {
			return writePlist(w, doc)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", errors.ErrUnsupportedOutputFormat, f)
}

// document converts v into plain maps and slices through its JSON form, so
// every encoder sees the same field names
func document(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
