package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ppusim/internal/version"
)

var logLevel string // Log verbosity level, overrides the config file

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "ppusim",
	Short:         "Pad-level NES PPU simulator",
	Version:       version.Get().Line(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("log") {
			return nil
		}
		return setLogLevel(logLevel)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return version.Get().Write(cmd.OutOrStdout())
	},
}

func setLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(versionCmd)
}
