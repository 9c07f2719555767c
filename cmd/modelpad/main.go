// Command modelpad is the operational CLI of the data-access layer: it
// validates configurations, lists configured data ports and previews what a
// datasource returns. Training and serving entry points live in the pipeline
// package and are wired into the user's own binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	verbose    bool
}

func (f *rootFlags) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !f.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "modelpad",
		Short:         "Uniform data access for ML pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file (default $MODELPAD_CFG or ./modelpad.yml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newValidateCmd(flags),
		newSourcesCmd(flags),
		newPreviewCmd(flags),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
