package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varusta/executor"
	"github.com/yairfalse/varusta/internal/telemetry"
	"github.com/yairfalse/varusta/journal"
	"github.com/yairfalse/varusta/outputs"
	"github.com/yairfalse/varusta/providers"
	"github.com/yairfalse/varusta/state"
	"github.com/yairfalse/varusta/types"
)

var (
	applyAutoApprove       bool
	applyDryRun            bool
	applyContinueOnFailure bool
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Make the cloud match the role map",
	Long: `Plan and execute the changes needed to make AWS match the role map.

Every decision is journaled before and after execution. A failed
decision stops the run unless --continue-on-failure is set; re-running
apply picks up where the failure left off.`,
	Example: `  varusta apply                        # Plan, confirm, execute
  varusta apply --auto-approve         # Skip the confirmation prompt
  varusta apply --dry-run              # Walk the plan without executing
  varusta apply --continue-on-failure  # Keep going past failed decisions`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip the confirmation prompt")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Walk the plan without calling AWS")
	applyCmd.Flags().BoolVar(&applyContinueOnFailure, "continue-on-failure", false, "Execute remaining decisions after a failure")
}

func runApply(cmd *cobra.Command, args []string) error {
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

	if !plan.HasChanges() {
		return nil
	}

	if !applyDryRun && !applyAutoApprove {
		if !confirm("\nDo you want to perform these actions?") {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	jrnl, err := journal.Open(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = jrnl.Close() }()

	engine := executor.NewEngine(provider, jrnl, executor.Options{
		DryRun:            applyDryRun,
		ContinueOnFailure: applyContinueOnFailure,
	})

	result, err := engine.Apply(ctx, plan, want)
	if err != nil {
		return err
	}

	fmt.Printf("\nApply complete: %d succeeded, %d failed, %d skipped.\n",
		result.SuccessfulCount, result.FailedCount, result.SkippedCount)

	if result.PartialFailure {
		return fmt.Errorf("apply finished with failures, re-run apply to converge")
	}
	if applyDryRun {
		return nil
	}

	return recordAndPrintOutputs(ctx, provider, want.Group.Name)
}

// recordAndPrintOutputs snapshots the post-apply cloud and prints outputs.
func recordAndPrintOutputs(ctx context.Context, provider providers.CloudProvider, groupName string) error {
	observed, err := provider.Observe(ctx)
	if err != nil {
		return fmt.Errorf("apply succeeded but post-apply observe failed: %w", err)
	}

	projected := outputs.Project(groupName, *observed)

	store, err := state.Open(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()

	rev, err := store.RecordSnapshot(groupName, projected, *observed)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	telemetry.RecordSnapshotRevision(ctx, rev)

	printOutputs(projected)
	return nil
}

func printOutputs(out types.Outputs) {
	fmt.Println("\nOutputs:")
	fmt.Printf("  security_group_name = %s\n", out.SecurityGroupName)
	fmt.Println("  server_ips:")
	for _, role := range outputs.Roles(out) {
		fmt.Printf("    %s = %s\n", role, out.ServerIPs[role])
	}
}
