package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile the whole site once",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		if err := site.Build(ctx); err != nil {
			fatal("Build failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
