package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextDefaultCmd)
	contextCmd.AddCommand(contextDeleteCmd)
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage trust contexts",
	Long:  `Commands to inspect the trust contexts naming which authorities are trusted.`,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trust contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := cliState.TrustContexts.List()
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(records)
		}
		if len(records) == 0 {
			fmt.Println("No trust contexts found.")
			return nil
		}
		names := make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tAUTHORITY")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, records[name].ID, records[name].Authority)
		}
		return w.Flush()
	},
}

var contextDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default trust context",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.TrustContexts.GetDefaultName()
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.TrustContexts.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default trust context is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a trust context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.TrustContexts.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted trust context %s\n", okFmt("✔"), args[0])
		return nil
	},
}
