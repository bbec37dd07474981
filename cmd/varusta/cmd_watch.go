package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/varusta/internal/daemon"
	"github.com/yairfalse/varusta/internal/telemetry"
)

var (
	watchInterval    time.Duration
	watchMetricsAddr string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously check for drift",
	Long: `Run a drift-detection loop: observe AWS on an interval, diff against
the role map, and export the results as Prometheus metrics. Watch never
applies anything; it only reports.

Endpoints:
- /metrics  Prometheus scrape target
- /health   daemon health JSON`,
	Example: `  varusta watch                     # Check every 5 minutes
  varusta watch --interval 30s      # Tighter loop
  varusta watch --metrics :9090     # Custom metrics address`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "Drift check interval")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics", ":2112", "Metrics server address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, want, err := loadDesired()
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		ServiceName:    "varusta",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	planFn := func(ctx context.Context) (int, error) {
		plan, observed, err := observeAndPlan(ctx, provider, want)
		if err != nil {
			return 0, err
		}
		telemetry.ManagedResources.Record(ctx,
			int64(len(observed.Groups)+len(observed.Instances)))
		return len(plan.Decisions), nil
	}

	d, err := daemon.New(daemon.Config{Interval: watchInterval, Region: cfg.Region}, planFn)
	if err != nil {
		return err
	}

	log.Info().
		Str("region", cfg.Region).
		Dur("interval", watchInterval).
		Str("metrics", watchMetricsAddr).
		Msg("varusta watch starting")

	var g run.Group

	// Drift loop
	loopCtx, loopCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return d.Run(loopCtx)
	}, func(error) {
		loopCancel()
	})

	// Metrics and health server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Health())
	})
	srv := &http.Server{Addr: watchMetricsAddr, Handler: mux}
	g.Add(func() error {
		log.Info().Str("addr", watchMetricsAddr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})

	// Signals
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) || errors.Is(err, context.Canceled) {
		log.Info().Msg("shutting down")
		return nil
	}
	return err
}
