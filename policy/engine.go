// Package policy evaluates Rego policies against a plan before it runs.
//
// ADVISORY ONLY: the engine returns warnings, it never blocks an apply.
// The operator decides what to do with a flagged plan.
package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

// Engine holds compiled Rego queries keyed by policy name.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Input is the document policies evaluate against.
type Input struct {
	Group     types.SecurityGroupSpec `json:"group"`
	Decisions []types.Decision        `json:"decisions"`
	Timestamp time.Time               `json:"timestamp"`
}

// Warning is one policy finding.
type Warning struct {
	Policy   string `json:"policy"`
	Severity string `json:"severity"` // "high", "medium", "low"
	Reason   string `json:"reason"`
}

// NewEngine creates an empty policy engine.
func NewEngine() *Engine {
	return &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}
}

// LoadPolicy compiles a Rego module and registers it under name.
// Policies contribute findings to the data.varusta.warnings set.
func (e *Engine) LoadPolicy(ctx context.Context, name string, regoCode string) error {
	query := rego.New(
		rego.Query("data.varusta.warnings"),
		rego.Module(name, regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile policy %s: %w", name, err)
	}

	e.queries[name] = prepared

	log.Debug().Str("policy", name).Msg("policy loaded")
	return nil
}

// LoadDefaults registers the built-in policies.
func (e *Engine) LoadDefaults(ctx context.Context) error {
	for name, code := range defaultPolicies {
		if err := e.LoadPolicy(ctx, name, code); err != nil {
			return err
		}
	}
	return nil
}

// Check evaluates every loaded policy against the input and collects
// warnings. A policy that fails to evaluate is logged and skipped so
// one bad rule cannot hide the findings of the rest.
func (e *Engine) Check(ctx context.Context, input Input) ([]Warning, error) {
	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	var warnings []Warning
	for name, query := range e.queries {
		results, err := query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			log.Error().Err(err).Str("policy", name).Msg("policy evaluation failed")
			continue
		}
		warnings = append(warnings, parseWarnings(name, results)...)
	}

	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Policy != warnings[j].Policy {
			return warnings[i].Policy < warnings[j].Policy
		}
		return warnings[i].Reason < warnings[j].Reason
	})
	return warnings, nil
}

// parseWarnings extracts Warning values from a rego result set. OPA
// returns arbitrary JSON shapes, so the decode has to go through
// interface{} values.
func parseWarnings(policy string, results rego.ResultSet) []Warning {
	var warnings []Warning
	for _, res := range results {
		for _, expr := range res.Expressions {
			items, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, item := range items {
				fields, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				w := Warning{Policy: policy}
				if s, ok := fields["severity"].(string); ok {
					w.Severity = s
				}
				if s, ok := fields["reason"].(string); ok {
					w.Reason = s
				}
				if w.Severity == "" {
					w.Severity = "low"
				}
				if w.Reason == "" {
					continue
				}
				warnings = append(warnings, w)
			}
		}
	}
	return warnings
}
