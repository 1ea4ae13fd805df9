package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/scantree"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "scantree",
	Short:         "Inventory directory trees, scan file contents, and derive directory digests",
	Long:          "Scantree inventories a directory tree into handle-addressed resources, collects per-file classification attributes and content digests, and rebuilds hash trees and duplicate reports from the emitted records.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file overriding the defaults")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(treeCmd)
}

// loadConfig returns the effective config: the defaults, overridden by
// the --config file when one is given.
func loadConfig() (scantree.Config, error) {
	if flagConfig != "" {
		return scantree.LoadConfig(flagConfig)
	}
	return scantree.DefaultConfig(), nil
}

// newLogger builds the CLI logger; --verbose switches it to debug level.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}
