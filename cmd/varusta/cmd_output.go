package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varusta/config"
	"github.com/yairfalse/varusta/outputs"
	"github.com/yairfalse/varusta/state"
	"github.com/yairfalse/varusta/types"
)

var (
	outputRefresh bool
	outputJSON    bool
)

// outputCmd represents the output command
var outputCmd = &cobra.Command{
	Use:   "output",
	Short: "Show the server IPs and security group name",
	Long: `Print the outputs of the last apply: the public IP per role and the
active security group name. Reads the local snapshot store by default;
--refresh queries AWS instead.`,
	Example: `  varusta output            # From the last applied snapshot
  varusta output --refresh  # Observe AWS live
  varusta output --json     # Machine-readable`,
	RunE: runOutput,
}

func init() {
	rootCmd.AddCommand(outputCmd)

	outputCmd.Flags().BoolVar(&outputRefresh, "refresh", false, "Query AWS instead of the local snapshot")
	outputCmd.Flags().BoolVar(&outputJSON, "json", false, "Print outputs as JSON")
}

func runOutput(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadDesired()
	if err != nil {
		return err
	}

	var projected types.Outputs
	if outputRefresh {
		projected, err = liveOutputs(ctx, cfg)
	} else {
		projected, err = storedOutputs()
	}
	if err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(projected)
	}

	printOutputs(projected)
	return nil
}

func liveOutputs(ctx context.Context, cfg *config.Config) (types.Outputs, error) {
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return types.Outputs{}, err
	}
	observed, err := provider.Observe(ctx)
	if err != nil {
		return types.Outputs{}, err
	}
	return outputs.Project(cfg.SecurityGroup.Name, *observed), nil
}

func storedOutputs() (types.Outputs, error) {
	store, err := state.Open(stateDir)
	if err != nil {
		return types.Outputs{}, fmt.Errorf("no local state (run apply first, or use --refresh): %w", err)
	}
	defer func() { _ = store.Close() }()

	snapshot, err := store.LatestSnapshot()
	if err != nil {
		return types.Outputs{}, fmt.Errorf("no applied snapshot (run apply first, or use --refresh): %w", err)
	}
	return snapshot.Outputs, nil
}
