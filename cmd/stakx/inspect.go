package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/PeterMedina/stakx"
)

var inspectDry bool

// targetRecorder collects targets instead of writing them.
type targetRecorder struct {
	mu      sync.Mutex
	targets map[string]string
}

func (r *targetRecorder) Write(target, source string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[target] = source
	return nil
}

type inspectReport struct {
	Site    any               `json:"site"`
	Targets map[string]string `json:"targets,omitempty"`
	Error   string            `json:"error,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the site and print its internal state as JSON",
	Long: `Build the site and print the loader, dependency tracker and output state
as JSON. With --dry-run nothing is written and the targets that would be
written are listed instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var opts []stakx.Option
		recorder := &targetRecorder{targets: map[string]string{}}
		if inspectDry {
			opts = append(opts, stakx.WithWriter(recorder))
		}

		site, err := openSite(opts...)
		if err != nil {
			fatal("Failed to open site", err)
		}

		report := inspectReport{}
		if err := site.Build(context.Background()); err != nil {
			report.Error = err.Error()
		}
		report.Site = site.State()
		if inspectDry {
			report.Targets = recorder.targets
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectDry, "dry-run", false, "Do not write output, list the targets instead")
}
