package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rage-cmd/ockam/pkg/identity"
	"github.com/Rage-cmd/ockam/pkg/state"
)

var okFmt = color.New(color.FgGreen).SprintFunc()

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityCreateCmd)
	identityCmd.AddCommand(identityListCmd)
	identityCmd.AddCommand(identityShowCmd)
	identityCmd.AddCommand(identityDeleteCmd)
	identityCmd.AddCommand(identityDefaultCmd)
	identityCmd.AddCommand(identityExportCmd)
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities",
	Long:  `Commands to create, list, and manage the cryptographic identities stored on this machine.`,
}

var identityCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new identity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := state.RandomName()
		if len(args) > 0 {
			name = args[0]
		}
		ident, err := cliState.CreateNamedIdentity(cmd.Context(), identity.NewSoftwareVault(), name)
		if err != nil {
			return err
		}
		fmt.Printf("%s Created identity %s (%s)\n", okFmt("✔"), name, ident.Identifier())
		return nil
	},
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cliState.Identities.List(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No identities found. Use 'ockam identity create' to create one.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIDENTIFIER\tDEFAULT")
		for _, e := range entries {
			def := ""
			if e.IsDefault {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Record, def)
		}
		return w.Flush()
	},
}

var identityShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := cliState.Identities.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatOutput(entry)
	},
}

var identityDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an identity and its attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.DeleteNamedIdentity(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted identity %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var identityDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default identity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.Identities.GetDefaultName(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.Identities.SetDefault(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default identity is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var identityExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export an identity's change history as hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := cliState.Identities.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		history, err := cliState.Store().GetChangeHistory(cmd.Context(), entry.Record)
		if err != nil {
			return err
		}
		blob, err := history.Export()
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(blob))
		return nil
	},
}
