package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/model"
)

var (
	selectBlades    []string
	selectRacks     []string
	selectHostsFile string
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List servers and manage the selection deployed to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.GetServers(cmd.Context()))
	},
}

var selectServersCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the servers, and optionally the hosts, to deploy",
	Example: `  kubam servers select --blade 1/1 --blade 1/2 --rack 7
  kubam servers select --blade 1/1 --hosts hosts.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		servers := make([]model.ServerRecord, 0, len(selectBlades)+len(selectRacks))

		for _, b := range selectBlades {
			chassis, slot, ok := model.ParseBlade(b)
			if !ok {
				return errors.New("blade " + b + " is not chassis/slot")
			}

			servers = append(servers, model.ServerRecord{
				Kind:      model.KindBlade,
				ChassisID: chassis,
				Slot:      slot,
				Selected:  true,
			})
		}

		for _, r := range selectRacks {
			servers = append(servers, model.ServerRecord{Kind: model.KindRack, RackID: r, Selected: true})
		}

		var hosts []model.HostRecord

		if selectHostsFile != "" {
			hosts = []model.HostRecord{}
			if err := readFile(selectHostsFile, &hosts); err != nil {
				return err
			}
		}

		return printResult(cmd, app.handler.SelectServers(cmd.Context(), servers, hosts))
	},
}

func init() {
	selectServersCmd.Flags().StringSliceVar(&selectBlades, "blade", nil, "blade as chassis/slot, repeatable")
	selectServersCmd.Flags().StringSliceVar(&selectRacks, "rack", nil, "rack server id, repeatable")
	selectServersCmd.Flags().StringVar(&selectHostsFile, "hosts", "", "YAML list of hosts paired in order with the selected servers")

	serversCmd.AddCommand(selectServersCmd)
	rootCmd.AddCommand(serversCmd)
}
