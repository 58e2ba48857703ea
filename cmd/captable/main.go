// Package main provides the captable operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flag values.
var (
	flagConfigDir string
	flagOutputDir string
)

// cfg holds the loaded configuration. Set by PersistentPreRunE so all
// subcommands can use it.
var cfg *cliConfig

var rootCmd = &cobra.Command{
	Use:   "captable",
	Short: "Capital structure breakpoint analysis toolkit",
	Long: `captable derives the complete breakpoint structure of a company's
capital stack from a YAML cap-table document: liquidation preference
thresholds, option exercise points, participation caps and conversion
crossovers, with an auditable derivation trail.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = loadConfig(flagConfigDir)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.captable)")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "output directory for report files (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(curveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// outputDir resolves the report directory: --output-dir flag > config output_dir.
func outputDir() string {
	if flagOutputDir != "" {
		return flagOutputDir
	}
	return cfg.OutputDir
}
