/*
Copyright © 2024 Metal toolbox authors <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/profiling"
)

var (
	args = &model.Args{}

	// set up in PersistentPreRunE, torn down in PersistentPostRun
	app *application

	exitCode int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "kubam",
	Short:         "kubam provisions bare metal Kubernetes clusters on UCS",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx, a, err := newApplication(cmd.Context(), args)
		if err != nil {
			return err
		}

		app = a
		cmd.SetContext(ctx)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		app.close(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	log.InitLogger()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&args.ConfigFile, "config", "", "configuration file, settings may also be set as KUBAM_ prefixed env vars")

	rootCmd.PersistentFlags().
		StringVar(&args.LogLevel, "log-level", "", "set logging level - info, debug, trace")

	rootCmd.PersistentFlags().
		StringVar(&args.StorePath, "store", "", "cluster configuration store (default is $HOME/.kubam/kubam.yaml)")

	rootCmd.PersistentFlags().
		BoolVarP(&args.Dryrun, "dryrun", "", false, "run against a simulated management plane")

	rootCmd.PersistentFlags().
		BoolVarP(&args.EnableProfiling, "enable-pprof", "", false, "Enable profiling endpoint, at http://localhost:9091 unless --pprof-endpoint is set")

	rootCmd.PersistentFlags().
		StringVar(&args.ProfilingEndpoint, "pprof-endpoint", profiling.DefaultEndpoint, "profiling endpoint listen address")
}
