package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PeterMedina/stakx"
)

var (
	verbose bool
	siteDir string
	drafts  bool
	target  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stakx",
	Short: "A static site generator for front matter documents",
	Long: `stakx compiles PageViews, collections and datasets into a static website.
In watch mode only the pages affected by a change are compiled again.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&siteDir, "dir", "d", "", "Site root (defaults to the nearest directory holding _config.yml)")
	rootCmd.PersistentFlags().BoolVar(&drafts, "drafts", false, "Compile items marked as drafts")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "", "Output folder (overrides the configuration)")
}

// openSite resolves the site root and wires a Site with the global flags.
func openSite(extra ...stakx.Option) (*stakx.Site, error) {
	root := siteDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root, err = stakx.FindSiteRoot(wd)
		if err != nil {
			return nil, err
		}
	}

	opts := []stakx.Option{
		stakx.WithLogger(slog.Default()),
		stakx.WithDrafts(drafts),
	}
	if target != "" {
		opts = append(opts, stakx.WithTarget(target))
	}
	return stakx.New(root, append(opts, extra...)...)
}
