package cmd

import (
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/handlers"
	"github.com/metal-toolbox/kubam/internal/model"
)

var (
	updatedSettings = &handlers.Settings{}
	isoMapFile      string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the deployment settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.Settings(cmd.Context()))
	},
}

var updateSettingsCmd = &cobra.Command{
	Use:   "update",
	Short: "Store the kubam address and public keys, and the proxy and org when given",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.UpdateSettings(cmd.Context(), updatedSettings))
	},
}

var kubamIPCmd = &cobra.Command{
	Use:   "kubam-ip [address]",
	Short: "Show or set the address hosts fetch their images from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return printResult(cmd, app.handler.KubamIP(cmd.Context()))
		}

		return printResult(cmd, app.handler.UpdateKubamIP(cmd.Context(), args[0]))
	},
}

var orgCmd = &cobra.Command{
	Use:   "org [name]",
	Short: "Show or set the UCS org, an empty name resets it to the default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !cmd.Flags().Changed("reset") {
			return printResult(cmd, app.handler.Org(cmd.Context()))
		}

		var org string
		if len(args) == 1 {
			org = args[0]
		}

		return printResult(cmd, app.handler.UpdateOrg(cmd.Context(), org))
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy [url]",
	Short: "Show or set the proxy hosts use",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return printResult(cmd, app.handler.Proxy(cmd.Context()))
		}

		return printResult(cmd, app.handler.UpdateProxy(cmd.Context(), args[0]))
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys [key...]",
	Short: "Show or set the public keys installed on hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return printResult(cmd, app.handler.PublicKeys(cmd.Context()))
		}

		return printResult(cmd, app.handler.UpdatePublicKeys(cmd.Context(), args))
	},
}

var isoMapCmd = &cobra.Command{
	Use:   "iso-map",
	Short: "Show or set, from a YAML file, the operating system to ISO image mapping",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if isoMapFile == "" {
			return printResult(cmd, app.handler.ISOMap(cmd.Context()))
		}

		var isos []model.ISOMapping
		if err := readFile(isoMapFile, &isos); err != nil {
			return err
		}

		return printResult(cmd, app.handler.UpdateISOMap(cmd.Context(), isos))
	},
}

func init() {
	updateSettingsCmd.Flags().StringVar(&updatedSettings.KubamIP, "kubam-ip", "", "address hosts fetch their images from")
	updateSettingsCmd.Flags().StringSliceVar(&updatedSettings.Keys, "key", nil, "public key, repeatable")
	updateSettingsCmd.Flags().StringVar(&updatedSettings.Proxy, "proxy", "", "proxy hosts use")
	updateSettingsCmd.Flags().StringVar(&updatedSettings.Org, "org", "", "UCS org")

	orgCmd.Flags().Bool("reset", false, "reset the org to the default")
	isoMapCmd.Flags().StringVarP(&isoMapFile, "file", "f", "", "YAML list of os and file entries")

	settingsCmd.AddCommand(updateSettingsCmd, kubamIPCmd, orgCmd, proxyCmd, keysCmd, isoMapCmd)
	rootCmd.AddCommand(settingsCmd)
}
