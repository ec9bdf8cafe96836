package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rage-cmd/ockam/pkg/store"
)

func init() {
	rootCmd.AddCommand(enrollmentCmd)
	enrollmentCmd.AddCommand(enrollmentStatusCmd)
}

var enrollmentCmd = &cobra.Command{
	Use:   "enrollment",
	Short: "Inspect enrollment status",
}

var enrollmentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the enrollment status of the default identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		def, err := cliState.Identities.GetDefault(ctx)
		if store.IsNotFound(err) {
			fmt.Println("No default identity. Not enrolled.")
			return nil
		}
		if err != nil {
			return err
		}

		enrolled, err := cliState.Store().IsIdentityEnrolled(ctx, def.Record)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			out := struct {
				Identity   string `json:"identity"`
				Identifier string `json:"identifier"`
				Enrolled   bool   `json:"enrolled"`
			}{def.Name, def.Record.String(), enrolled}
			return formatOutput(out)
		}
		if enrolled {
			fmt.Printf("%s Identity %s (%s) is enrolled\n", okFmt("✔"), def.Name, def.Record)
			return nil
		}
		fmt.Printf("Identity %s (%s) is not enrolled\n", def.Name, def.Record)
		return nil
	},
}
