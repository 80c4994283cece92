package cmd

import (
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/model"
)

var (
	networksVLAN string
	networksFile string
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List VLANs and manage the cluster network settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.GetNetworks(cmd.Context()))
	},
}

var selectVLANCmd = &cobra.Command{
	Use:   "select-vlan <name>",
	Short: "Select the VLAN the cluster network is bound to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd, app.handler.SelectVLAN(cmd.Context(), args[0]))
	},
}

var updateNetworksCmd = &cobra.Command{
	Use:   "update",
	Short: "Store the target VLAN and the network settings read from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var networks []model.Network

		if networksFile != "" {
			if err := readFile(networksFile, &networks); err != nil {
				return err
			}
		}

		return printResult(cmd, app.handler.UpdateNetworks(cmd.Context(), networksVLAN, networks))
	},
}

func init() {
	updateNetworksCmd.Flags().StringVar(&networksVLAN, "vlan", "", "target VLAN name")
	updateNetworksCmd.Flags().StringVarP(&networksFile, "file", "f", "", "YAML list of network settings")

	networksCmd.AddCommand(selectVLANCmd, updateNetworksCmd)
	rootCmd.AddCommand(networksCmd)
}
