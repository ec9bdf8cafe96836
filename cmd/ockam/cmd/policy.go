package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policySetCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyDeleteCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage resource policies",
	Long:  `Commands to manage the access policies attached to (resource, action) pairs.`,
}

var policySetCmd = &cobra.Command{
	Use:   "set <resource> <action> <expression>",
	Short: "Set the policy for a resource and action",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Store().SetPolicy(cmd.Context(), args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("%s Set policy for %s/%s\n", okFmt("✔"), args[0], args[1])
		return nil
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show <resource> <action>",
	Short: "Show the policy for a resource and action",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := cliState.Store().GetPolicy(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(policy)
		}
		fmt.Println(policy.Expression)
		return nil
	},
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		policies, err := cliState.Store().ListPolicies(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(policies)
		}
		if len(policies) == 0 {
			fmt.Println("No policies found. Use 'ockam policy set' to create one.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tACTION\tEXPRESSION")
		for _, p := range policies {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Resource, p.Action, p.Expression)
		}
		return w.Flush()
	},
}

var policyDeleteCmd = &cobra.Command{
	Use:   "delete <resource> <action>",
	Short: "Delete the policy for a resource and action",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliState.Store().DeletePolicy(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted policy for %s/%s\n", okFmt("✔"), args[0], args[1])
		return nil
	},
}
