package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	configPath string
	stateDir   string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "varusta",
		Short: "Role-Driven EC2 Provisioning",
		Long: `Varusta - Role-Driven EC2 Provisioning

Varusta turns a role map (role name -> ports) into running infrastructure:
one shared security group with the deduplicated union of every role's
ports, and one EC2 instance per role, discovered on later runs by tags.

Plan shows what would change, apply makes it so, watch keeps checking.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Varusta {{.Version}} - Role-Driven EC2 Provisioning
`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "varusta.yaml", "Path to the role map configuration")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", ".varusta", "Directory for snapshots and the apply journal")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
