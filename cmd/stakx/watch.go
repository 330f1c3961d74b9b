package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PeterMedina/stakx"
	"github.com/PeterMedina/stakx/pkg/metrics"
)

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Compile the site and recompile on change",
	Long: `Compile the site, then watch the site root and recompile only what each
change affects. Failures are logged and watching continues.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []stakx.Option
		if metricsAddr != "" {
			recorder := metrics.NewPrometheusRecorder(nil)
			opts = append(opts, stakx.WithRecorder(recorder))

			srv := &http.Server{
				Addr:              metricsAddr,
				Handler:           recorder.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				slog.Info("Serving metrics", "addr", metricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("Metrics server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		site, err := openSite(opts...)
		if err != nil {
			fatal("Failed to open site", err)
		}
		if err := site.Watch(ctx); err != nil {
			fatal("Watch failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
