// Package cmd implements the ockam CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rage-cmd/ockam/internal/version"
	"github.com/Rage-cmd/ockam/pkg/clierror"
	"github.com/Rage-cmd/ockam/pkg/state"
)

var (
	// Global flags
	outputFormat string
	stateDir     string

	// Shared orchestrator instance
	cliState *state.CliState
)

var rootCmd = &cobra.Command{
	Use:   "ockam",
	Short: "Manage the local trust state",
	Long: `ockam is a command-line interface for the local trust state: the
cryptographic identities, vaults, named entities, and defaults that
define who you are and what you trust on this machine.`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		dir := stateDir
		if dir == "" {
			var err error
			dir, err = state.DefaultDir()
			if err != nil {
				return err
			}
		}
		var err error
		cliState, err = state.InitializeAt(dir)
		if err != nil {
			return fmt.Errorf("failed to initialize trust state: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cliState != nil {
			cliState.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format: table or json")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "",
		"Trust-state directory (default: $OCKAM_HOME or ~/.ockam)")
}

// formatOutput prints a value as indented JSON.
func formatOutput(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// Execute runs the root command and exits with the structured error's exit
// code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cliErr := clierror.FromError(err)
		clierror.PrintError(cliErr, outputFormat)
		os.Exit(cliErr.ExitCode)
	}
}
