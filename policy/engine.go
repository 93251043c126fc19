// Package policy decides whether an application may be auto-submitted.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.apply_policy.decision"),
		rego.Module("apply_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the apply policy for one application.
// Input keys: company, fit_score, salary_floor, min_salary.
// Returns: decision ("auto", "review", "block"), reason (optional), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "review", "no decision from policy", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}
	return "review", "unexpected policy return type", nil
}

// DefaultPolicy is the default policy content: strong fits at or above the
// salary floor submit automatically, weaker ones need a human look, and a
// posting paying under the candidate's minimum is blocked outright.
const DefaultPolicy = `
package apply_policy

default decision = "review"

decision = "auto" {
	input.fit_score >= 85
	input.salary_floor >= input.min_salary
}

decision = "block" {
	input.salary_floor > 0
	input.min_salary > 0
	input.salary_floor < input.min_salary
}
`
