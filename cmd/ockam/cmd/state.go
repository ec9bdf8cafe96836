package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rage-cmd/ockam/pkg/store"
)

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(deleteStateCmd)
	rootCmd.AddCommand(statusCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all local trust state and start fresh",
	Long: `Removes every identity, vault, named entity, and default from the
trust-state directory, then re-initializes an empty state in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fresh, err := cliState.Reset()
		if err != nil {
			return err
		}
		cliState = fresh
		fmt.Printf("%s Trust state reset at %s\n", okFmt("✔"), cliState.Dir())
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the trust state, then start fresh",
	Long: `Moves the entire trust-state directory to a sibling .bak directory,
replacing any previous backup, then re-initializes an empty state in
place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fresh, err := cliState.BackupAndReset()
		if err != nil {
			return err
		}
		cliState = fresh
		fmt.Printf("%s Trust state backed up and reset at %s\n", okFmt("✔"), cliState.Dir())
		return nil
	},
}

var deleteStateCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all local trust state",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cliState.Dir()
		if err := cliState.Delete(); err != nil {
			return err
		}
		cliState = nil
		fmt.Printf("%s Trust state deleted at %s\n", okFmt("✔"), dir)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the trust-state directory and enrollment status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		enrolled, err := cliState.IsEnrolled(ctx)
		if err != nil {
			return err
		}

		identityName := "-"
		identifier := "-"
		if def, err := cliState.Identities.GetDefault(ctx); err == nil {
			identityName = def.Name
			identifier = def.Record.String()
		} else if !store.IsNotFound(err) {
			return err
		}

		if outputFormat != "table" {
			out := struct {
				Dir        string `json:"dir"`
				Database   string `json:"database"`
				Identity   string `json:"default_identity"`
				Identifier string `json:"identifier"`
				Enrolled   bool   `json:"enrolled"`
			}{cliState.Dir(), cliState.DatabasePath(), identityName, identifier, enrolled}
			return formatOutput(out)
		}

		fmt.Printf("Directory:        %s\n", cliState.Dir())
		fmt.Printf("Database:         %s\n", cliState.DatabasePath())
		fmt.Printf("Default identity: %s (%s)\n", identityName, identifier)
		if enrolled {
			fmt.Printf("Enrolled:         %s\n", okFmt("yes"))
		} else {
			fmt.Println("Enrolled:         no")
		}
		return nil
	},
}
