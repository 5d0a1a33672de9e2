package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/lifetime/lifetime"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := lifetime.GetInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "lifetime version %s (%s, %s)\n", info.Version, info.Discipline, info.GoVersion)
	},
}
