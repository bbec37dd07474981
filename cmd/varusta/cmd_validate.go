package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varusta/rolemap"
)

var validateRemote bool

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the role map configuration",
	Long: `Validate the role map configuration without touching the cloud.

Checks the YAML shape, port ranges, and that every role has at least one
port. With --remote it also resolves the AMI, key pair, and default
VPC/subnet against AWS.`,
	Example: `  varusta validate                       # Offline checks only
  varusta validate --config infra.yaml   # Specific config file
  varusta validate --remote              # Also resolve AWS references`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateRemote, "remote", false, "Resolve AMI, key pair, and network references against AWS")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, want, err := loadDesired()
	if err != nil {
		return err
	}

	roles := rolemap.Roles(cfg.ServerRoles)
	ports := rolemap.Ports(want.Group.Ingress)

	fmt.Printf("Configuration is valid.\n")
	fmt.Printf("  Region:    %s\n", cfg.Region)
	fmt.Printf("  Roles:     %d (%v)\n", len(roles), roles)
	fmt.Printf("  Ports:     %v\n", ports)
	fmt.Printf("  Group:     %s\n", cfg.SecurityGroup.Name)

	if !validateRemote {
		return nil
	}

	ctx := cmd.Context()
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	if err := provider.ResolveReferences(ctx, want); err != nil {
		return err
	}

	fmt.Printf("AWS references resolved (ami, key pair, default vpc/subnet).\n")
	return nil
}
