package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/config"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// RulesName is the registry name of the rules provider
const RulesName = "rules"

// Rules operations
const (
	// OpCheck reports failed rules as issues and always succeeds
	OpCheck = "check"

	// OpEnforce fails with a validation error when any rule fails
	OpEnforce = "enforce"
)

type (
	rule struct {
		config.RuleConfig
		program *vm.Program
	}

	// Rules evaluates named sets of expr-lang rules against a document
	Rules struct {
		sets map[string][]rule
	}

	// Issue is a failed rule
	Issue struct {
		Rule           string `json:"rule"`
		Message        string `json:"message"`
		Severity       string `json:"severity"`
		Recommendation string `json:"recommendation,omitempty"`
	}

	checkInput struct {
		RuleSet  string         `mapstructure:"rule_set"`
		Document map[string]any `mapstructure:"document"`
	}
)

// BuiltinRuleSets are the rule sets available without configuration
func BuiltinRuleSets() map[string][]config.RuleConfig {
	return map[string][]config.RuleConfig{
		"transaction_input": {
			{Name: "description", Expr: `(description ?? "") != ""`, Message: "transaction description is missing",
				Recommendation: "Describe the transaction.", Severity: "error"},
			{Name: "amount", Expr: `(amount ?? 0) > 0`, Message: "transaction amount must be positive",
				Recommendation: "Enter the transaction amount.", Severity: "error"},
			{Name: "type", Expr: `(transactionType ?? "") in ["income", "expense", "transfer"]`,
				Message: "transaction type must be income, expense or transfer", Severity: "error"},
			{Name: "date", Expr: `(date ?? "") matches "^\\d{4}-\\d{2}-\\d{2}$"`,
				Message: "transaction date must be YYYY-MM-DD", Severity: "error"},
		},
		"invoice_system": {
			{Name: "registration_number", Expr: `(registrationNumber ?? "") matches "^T\\d{13}$"`,
				Message: "qualified invoice registration number is missing or malformed",
				Recommendation: "Register as a qualified invoice issuer and print the T-number on invoices.",
				Severity: "error"},
			{Name: "issue_date", Expr: `(issueDate ?? "") != ""`, Message: "invoice issue date is missing",
				Recommendation: "Add the transaction date to every invoice.", Severity: "warning"},
			{Name: "tax_breakdown", Expr: `taxBreakdown ?? false`, Message: "tax is not broken down by rate",
				Recommendation: "Show the tax amount separately for the standard and reduced rates.",
				Severity: "warning"},
		},
		"consumption_tax": {
			{Name: "filing", Expr: `consumptionTaxFiled ?? false`, Message: "consumption tax return not filed",
				Recommendation: "File the consumption tax return for the period.", Severity: "error"},
			{Name: "rates", Expr: `all(taxRates ?? [], {# in [0.08, 0.1]})`,
				Message: "unexpected consumption tax rate",
				Recommendation: "Use the 10% standard or 8% reduced rate.", Severity: "error"},
		},
		"withholding_tax": {
			{Name: "payments", Expr: `withholdingPaid ?? false`, Message: "withholding tax not paid on time",
				Recommendation: "Pay withheld income tax by the 10th of the following month.",
				Severity: "error"},
			{Name: "slips", Expr: `(payrollSlips ?? 0) >= (employees ?? 0)`,
				Message: "withholding slips missing for some employees",
				Recommendation: "Issue withholding slips to every employee.", Severity: "warning"},
		},
	}
}

// NewRules compiles the builtin rule sets and sets. A configured set
// replaces a builtin set of the same name.
func NewRules(sets map[string][]config.RuleConfig) (*Rules, error) {
	merged := BuiltinRuleSets()
	for name, set := range sets {
		merged[name] = set
	}

	r := &Rules{sets: make(map[string][]rule, len(merged))}
	for name, set := range merged {
		compiled := make([]rule, 0, len(set))
		for _, rc := range set {
			program, err := expr.Compile(rc.Expr, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("%w: rule set %s, rule %s: %w",
					errors.ErrInvalidExpression, name, rc.Name, err)
			}
			if rc.Severity == "" {
				rc.Severity = "error"
			}
			compiled = append(compiled, rule{RuleConfig: rc, program: program})
		}
		r.sets[name] = compiled
	}
	return r, nil
}

// RuleSets returns the available rule set names, sorted
func (r *Rules) RuleSets() []string {
	res := make([]string, 0, len(r.sets))
	for name := range r.sets {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func (r *Rules) Name() string {
	return RulesName
}

func (r *Rules) Supports(operation string) bool {
	return operation == OpCheck || operation == OpEnforce
}

func (r *Rules) Invoke(
	ctx context.Context, operation string, input orchestration.Input,
) orchestration.Response {
	if err := ctx.Err(); err != nil {
		return orchestration.Fail(orchestration.KindCancelled, err)
	}
	if !r.Supports(operation) {
		return orchestration.Fail(orchestration.KindPermanent,
			fmt.Errorf("%w: %s.%s", orchestration.ErrUnsupportedOperation, RulesName, operation))
	}

	var in checkInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("rule_set", in.RuleSet); err != nil {
		return invalid(err)
	}
	issues, checked, err := r.Evaluate(in.RuleSet, in.Document)
	if err != nil {
		return invalid(err)
	}

	if operation == OpEnforce && len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.Message)
		}
		return orchestration.Fail(orchestration.KindValidation,
			fmt.Errorf("%s: %s", in.RuleSet, strings.Join(msgs, "; ")))
	}

	list := make([]any, 0, len(issues))
	for _, issue := range issues {
		list = append(list, map[string]any{
			"rule":           issue.Rule,
			"message":        issue.Message,
			"severity":       issue.Severity,
			"recommendation": issue.Recommendation,
		})
	}
	return orchestration.Succeed(map[string]any{
		"rule_set": in.RuleSet,
		"checked":  checked,
		"passed":   len(issues) == 0,
		"issues":   list,
	})
}

// Evaluate runs a rule set against doc. A rule that cannot be evaluated
// is reported as an issue.
func (r *Rules) Evaluate(set string, doc map[string]any) ([]Issue, int, error) {
	rules, ok := r.sets[set]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", errors.ErrUnknownRuleSet, set)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	var issues []Issue
	for _, rl := range rules {
		out, err := expr.Run(rl.program, doc)
		passed, _ := out.(bool)
		if err == nil && passed {
			continue
		}
		msg := rl.Message
		if msg == "" {
			msg = fmt.Sprintf("rule %s failed", rl.Name)
		}
		if err != nil {
			msg = fmt.Sprintf("%s (%v)", msg, err)
		}
		issues = append(issues, Issue{
			Rule:           rl.Name,
			Message:        msg,
			Severity:       rl.Severity,
			Recommendation: rl.Recommendation,
		})
	}
	return issues, len(rules), nil
}
