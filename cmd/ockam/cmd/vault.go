package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Rage-cmd/ockam/pkg/state"
)

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultCreateCmd)
	vaultCmd.AddCommand(vaultListCmd)
	vaultCmd.AddCommand(vaultDefaultCmd)
	vaultCmd.AddCommand(vaultDeleteCmd)
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vaults",
	Long:  `Commands to create, list, and manage the named vaults holding signing keys.`,
}

var vaultCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := state.RandomName()
		if len(args) > 0 {
			name = args[0]
		}
		config := state.VaultConfig{
			Path: filepath.Join(cliState.Dir(), "vaults", "data", name+"-storage.json"),
		}
		if err := cliState.Vaults.Create(cmd.Context(), name, config); err != nil {
			return err
		}
		fmt.Printf("%s Created vault %s\n", okFmt("✔"), name)
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all vaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cliState.Vaults.List(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No vaults found. Use 'ockam vault create' to create one.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tDEFAULT")
		for _, e := range entries {
			def := ""
			if e.IsDefault {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Record.Path, def)
		}
		return w.Flush()
	},
}

var vaultDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.Vaults.GetDefaultName(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.Vaults.SetDefault(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default vault is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var vaultDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Vaults.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted vault %s\n", okFmt("✔"), args[0])
		return nil
	},
}
