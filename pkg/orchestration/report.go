package orchestration

import (
	"encoding/json"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"
)

// AggregateReport summarizes a lenient run
type AggregateReport struct {
	Score           int      `json:"score"`
	IssueCount      int      `json:"issue_count"`
	Recommendations []string `json:"recommendations"`
	NextActions     []string `json:"next_actions"`
}

const (
	FailurePenalty = 20
	IssuePenalty   = 5
	MaxScore       = 100

	// ConsultThreshold is the issue count above which an expert review is
	// recommended
	ConsultThreshold = 5

	ActionNoIssues      = "Compliance check complete. No issues were found."
	ActionReviewIssues  = "Review the detected issues and apply the necessary corrections."
	ActionConsultExpert = "Many issues were detected. Consulting a tax accountant is recommended."
)

// Aggregate reduces step outcomes into a score and summary. It holds no
// state: the same outcomes always yield the same report.
func Aggregate(outcomes []Outcome) AggregateReport {
	res := AggregateReport{
		Score:           MaxScore,
		Recommendations: []string{},
	}
	for _, o := range outcomes {
		if !o.Success {
			res.Score = floor(res.Score - FailurePenalty)
			continue
		}
		f := findingsOf(o.Value)
		res.IssueCount += len(f.Issues)
		res.Score = floor(res.Score - IssuePenalty*len(f.Issues))
		for _, issue := range f.Issues {
			if rec := recommendationOf(issue); rec != "" {
				res.Recommendations = append(res.Recommendations, rec)
			}
		}
		for _, rec := range f.Recommendations {
			if s, ok := rec.(string); ok && s != "" {
				res.Recommendations = append(res.Recommendations, s)
			}
		}
	}
	res.NextActions = nextActions(res.IssueCount)
	return res
}

func nextActions(issueCount int) []string {
	if issueCount == 0 {
		return []string{ActionNoIssues}
	}
	res := []string{ActionReviewIssues}
	if issueCount > ConsultThreshold {
		res = append(res, ActionConsultExpert)
	}
	return res
}

// findings holds the list-typed fields a step value may expose. Each field
// is decoded on its own so a malformed one does not hide the other.
type findings struct {
	Issues          []any
	Recommendations []any
}

// findingsOf reads "issues" and "recommendations" from an opaque value.
// Strings and bytes are parsed as JSON. Other values are decoded directly,
// matching field names case-insensitively, and fall back to their JSON
// encoding for structs whose json tags rename the fields.
func findingsOf(value any) findings {
	switch v := value.(type) {
	case nil:
		return findings{}
	case string:
		return findingsOf(parseJSON(v))
	case []byte:
		return findingsOf(parseJSON(string(v)))
	case json.RawMessage:
		return findingsOf(parseJSON(string(v)))
	}

	f := findings{
		Issues:          listField(value, "issues"),
		Recommendations: listField(value, "recommendations"),
	}
	if f.Issues != nil || f.Recommendations != nil {
		return f
	}
	if _, ok := value.(map[string]any); ok {
		return f
	}
	b, err := json.Marshal(value)
	if err != nil {
		return f
	}
	doc := parseJSON(string(b))
	if _, ok := doc.(map[string]any); !ok {
		return f
	}
	return findings{
		Issues:          listField(doc, "issues"),
		Recommendations: listField(doc, "recommendations"),
	}
}

// parseJSON returns the decoded document, or nil for invalid JSON
func parseJSON(doc string) any {
	if !gjson.Valid(doc) {
		return nil
	}
	return gjson.Parse(doc).Value()
}

// listField decodes one list-typed field. Missing fields and fields of
// another type yield nil.
func listField(value any, name string) []any {
	var out []any
	target := map[string]any{}
	if err := mapstructure.Decode(value, &target); err != nil {
		return nil
	}
	for key, field := range target {
		if !strings.EqualFold(key, name) {
			continue
		}
		if err := mapstructure.Decode(field, &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// recommendationOf reads the recommendation text of one issue
func recommendationOf(issue any) string {
	var rec struct {
		Recommendation string `mapstructure:"recommendation"`
	}
	if err := mapstructure.Decode(issue, &rec); err != nil {
		return ""
	}
	return rec.Recommendation
}

func floor(score int) int {
	if score < 0 {
		return 0
	}
	return score
}
