package cmd

import (
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/tasks"
)

var destroyOpts = tasks.DestroyOptions{}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create the org, cluster network and server profiles of the stored hosts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.Deploy(cmd.Context()))
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove what deploy created",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.Destroy(cmd.Context(), destroyOpts))
	},
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyOpts.DeleteOrg, "delete-org", false, "also remove the org, the root org is always kept")

	rootCmd.AddCommand(deployCmd, destroyCmd)
}
