package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var planOut string

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change",
	Long: `Compare the role map against what is running in AWS and print the
decisions apply would execute, without executing any of them.

Policy checks run against the plan and print advisory warnings; they
never block.`,
	Example: `  varusta plan                  # Plan against the default config
  varusta plan --out plan.json  # Also write the plan as JSON`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planOut, "out", "", "Write the plan as JSON to this file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, want, err := loadDesired()
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	plan, _, err := observeAndPlan(ctx, provider, want)
	if err != nil {
		return err
	}

	warnings := checkPolicies(ctx, want, plan)
	printPlan(plan, warnings)

	if planOut != "" {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		if err := os.WriteFile(planOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write plan file: %w", err)
		}
		fmt.Printf("\nPlan written to %s\n", planOut)
	}
	return nil
}
