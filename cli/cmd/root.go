// Package cmd provides the Cobra commands for the chunkmap CLI.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chunkmap/chunkmap/cli/output"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chunkmap",
	Short: "chunkmap - Build client bundles and their reference manifest",
	Long: `chunkmap bundles client component modules and emits the reference
manifest that maps server-side module references to client bundle ids,
chunk files, and exports.

Get started:
  chunkmap build --entry app/page.tsx    Bundle and emit the manifest
  chunkmap --help                        Show available commands`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet
		if debug || viper.GetBool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	// Bind environment variables
	viper.SetEnvPrefix("CHUNKMAP")
	_ = viper.BindEnv("debug") // CHUNKMAP_DEBUG

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}
