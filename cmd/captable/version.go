// Version command for the captable CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI release tag.
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the captable version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("captable", Version)
	},
}
