package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varusta/executor"
	"github.com/yairfalse/varusta/journal"
	"github.com/yairfalse/varusta/planner"
	"github.com/yairfalse/varusta/types"
)

var destroyAutoApprove bool

// destroyCmd represents the destroy command
var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Terminate every managed resource",
	Long: `Terminate all instances and delete all security groups carrying the
managed tag, instances first so group deletion cannot be blocked by a
live attachment.`,
	Example: `  varusta destroy                 # Plan the teardown, then confirm
  varusta destroy --auto-approve  # No prompt`,
	RunE: runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)

	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip the confirmation prompt")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadDesired()
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	observed, err := provider.Observe(ctx)
	if err != nil {
		return err
	}

	plan := planner.New().Destroy(*observed)
	printPlan(plan, nil)

	if !plan.HasChanges() {
		return nil
	}

	if !destroyAutoApprove {
		if !confirm("\nThis will destroy all managed resources.") {
			fmt.Println("Destroy cancelled.")
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

	engine := executor.NewEngine(provider, jrnl, executor.Options{})
	result, err := engine.Apply(ctx, plan, types.DesiredState{})
	if err != nil {
		return err
	}

	fmt.Printf("\nDestroy complete: %d succeeded, %d failed.\n",
		result.SuccessfulCount, result.FailedCount)
	if result.PartialFailure {
		return fmt.Errorf("destroy finished with failures, re-run to finish teardown")
	}
	return nil
}
