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
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeShowCmd)
	nodeCmd.AddCommand(nodeDefaultCmd)
	nodeCmd.AddCommand(nodeDeleteCmd)
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage nodes",
	Long:  `Commands to manage named nodes and their per-node state directories.`,
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new node",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := state.RandomName()
		if len(args) > 0 {
			name = args[0]
		}
		if err := cliState.Nodes.Create(cmd.Context(), name, state.NodeConfig{}); err != nil {
			return err
		}
		if _, err := cliState.NodeDir(name); err != nil {
			return err
		}
		fmt.Printf("%s Created node %s\n", okFmt("✔"), name)
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cliState.Nodes.List(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No nodes found. Use 'ockam node create' to create one.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDEFAULT")
		for _, e := range entries {
			def := ""
			if e.IsDefault {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\n", e.Name, def)
		}
		return w.Flush()
	},
}

var nodeShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one node and its log paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := cliState.Nodes.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		stdout, err := cliState.NodeStdoutLog(entry.Name)
		if err != nil {
			return err
		}
		stderr, err := cliState.NodeStderrLog(entry.Name)
		if err != nil {
			return err
		}
		out := struct {
			Name      string `json:"name"`
			IsDefault bool   `json:"is_default"`
			Stdout    string `json:"stdout_log"`
			Stderr    string `json:"stderr_log"`
		}{entry.Name, entry.IsDefault, stdout, stderr}
		return formatOutput(out)
	},
}

var nodeDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default node",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.Nodes.GetDefaultName(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.Nodes.SetDefault(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default node is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a node and its state directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Nodes.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(cliState.Dir(), "nodes", args[0])); err != nil {
			return err
		}
		fmt.Printf("%s Deleted node %s\n", okFmt("✔"), args[0])
		return nil
	},
}
