package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PeterMedina/stakx"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stakx",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stakx version %s\n", strings.TrimSpace(stakx.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
