package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/leaknews"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "leaknews", leaknews.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
