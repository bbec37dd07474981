package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yairfalse/varusta/config"
	"github.com/yairfalse/varusta/desired"
	"github.com/yairfalse/varusta/planner"
	"github.com/yairfalse/varusta/policy"
	"github.com/yairfalse/varusta/providers"
	"github.com/yairfalse/varusta/providers/aws"
	"github.com/yairfalse/varusta/types"
)

// loadDesired loads the config and renders the desired state from it.
func loadDesired() (*config.Config, types.DesiredState, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, types.DesiredState{}, err
	}
	return cfg, desired.Build(cfg), nil
}

func newProvider(ctx context.Context, cfg *config.Config) (providers.CloudProvider, error) {
	provider, err := aws.New(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws provider: %w", err)
	}
	return provider, nil
}

// observeAndPlan resolves references, observes the cloud, and diffs.
func observeAndPlan(ctx context.Context, provider providers.CloudProvider, want types.DesiredState) (*planner.Plan, *types.CloudState, error) {
	if err := provider.ResolveReferences(ctx, want); err != nil {
		return nil, nil, err
	}

	observed, err := provider.Observe(ctx)
	if err != nil {
		return nil, nil, err
	}

	plan := planner.New().Plan(want, *observed)
	return plan, observed, nil
}

// checkPolicies runs the built-in policies against a plan.
func checkPolicies(ctx context.Context, want types.DesiredState, plan *planner.Plan) []policy.Warning {
	engine := policy.NewEngine()
	if err := engine.LoadDefaults(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "policy load failed: %v\n", err)
		return nil
	}

	warnings, err := engine.Check(ctx, policy.Input{
		Group:     want.Group,
		Decisions: plan.Decisions,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "policy check failed: %v\n", err)
		return nil
	}
	return warnings
}

func printPlan(plan *planner.Plan, warnings []policy.Warning) {
	if !plan.HasChanges() {
		fmt.Println("No changes. Cloud matches the role map.")
		return
	}

	for _, d := range plan.Decisions {
		fmt.Printf("  %s %s %s  %s\n", actionSymbol(d.Action), d.ResourceType, decisionTarget(d), d.Reason)
	}

	s := plan.Summarize()
	fmt.Printf("\nPlan: %d to create, %d to update, %d to replace, %d to delete.\n",
		s.Creates, s.Updates, s.Replaces, s.Deletes)

	for _, w := range warnings {
		fmt.Printf("Warning [%s]: %s\n", w.Severity, w.Reason)
	}
}

func actionSymbol(action string) string {
	switch action {
	case types.ActionCreate:
		return "+"
	case types.ActionUpdate:
		return "~"
	case types.ActionReplace:
		return "±"
	case types.ActionDelete:
		return "-"
	default:
		return " "
	}
}

func decisionTarget(d types.Decision) string {
	if d.Role != "" {
		return d.Role
	}
	if d.ResourceID != "" {
		return d.ResourceID
	}
	if d.Group != nil {
		return d.Group.Name
	}
	return ""
}

// confirm asks the operator before anything destructive happens.
func confirm(prompt string) bool {
	fmt.Printf("%s Only 'yes' is accepted: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(answer) == "yes"
}
