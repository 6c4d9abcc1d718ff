package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Long:  `Display the version, commit hash, and build date of the chunkmap CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chunkmap %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Build Date: %s\n", BuildDate)
	},
}
