package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(spaceCmd)
	spaceCmd.AddCommand(spaceListCmd)
	spaceCmd.AddCommand(spaceDefaultCmd)
	spaceCmd.AddCommand(spaceDeleteCmd)

	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDefaultCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Manage spaces",
	Long:  `Commands to inspect the spaces populated during enrollment.`,
}

var spaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all spaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := cliState.Spaces.List()
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(records)
		}
		if len(records) == 0 {
			fmt.Println("No spaces found. Enroll to populate spaces.")
			return nil
		}
		names := make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, records[name].ID)
		}
		return w.Flush()
	},
}

var spaceDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default space",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.Spaces.GetDefaultName()
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.Spaces.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default space is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var spaceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Spaces.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted space %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Commands to inspect the projects populated during enrollment.`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := cliState.Projects.List()
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(records)
		}
		if len(records) == 0 {
			fmt.Println("No projects found. Enroll to populate projects.")
			return nil
		}
		names := make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tSPACE")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, records[name].ID, records[name].SpaceID)
		}
		return w.Flush()
	},
}

var projectDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			name, err := cliState.Projects.GetDefaultName()
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}
		if err := cliState.Projects.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default project is now %s\n", okFmt("✔"), args[0])
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Projects.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted project %s\n", okFmt("✔"), args[0])
		return nil
	},
}
