package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/cirrus/internal/daemon"
	"github.com/yairfalse/cirrus/internal/emitter"
	"github.com/yairfalse/cirrus/internal/filter"
	"github.com/yairfalse/cirrus/internal/telemetry"
)

var (
	watchInterval time.Duration
	watchListen   string
	watchOnce     bool
	watchJSON     bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll resource statuses and export them as metrics",
	Long: `Poll the status of every virtual machine, elastic IP address and
scaling group at a fixed interval.

Statuses are exported on /metrics. /healthz reports liveness and /readyz
reports ready once the first poll round has finished. Scaling groups are
skipped when the account is not subscribed to auto scaling.`,
	Example: `  cirrus watch                         # Poll with the configured interval
  cirrus watch --interval 30s          # Poll every 30 seconds
  cirrus watch --once --jsonl          # One round, snapshots on stdout`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (overrides watch.interval)")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Metrics listen address (overrides watch.listen)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Run one poll round and exit")
	watchCmd.Flags().BoolVar(&watchJSON, "jsonl", false, "Also write snapshots to stdout as JSON lines")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchInterval > 0 {
		cfg.Watch.Interval = watchInterval
	}
	if watchListen != "" {
		cfg.Watch.Listen = watchListen
	}

	reg := promclient.NewRegistry()
	tel, err := telemetry.NewProvider(ctx, cfg.OTEL, telemetry.WithPrometheus(reg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	d, em, err := buildDaemon(ctx, tel, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = em.Close() }()

	if watchOnce {
		d.RunOnce(ctx)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", handleHealthz(d))
	mux.HandleFunc("/readyz", handleReadyz(d))
	srv := &http.Server{Addr: cfg.Watch.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	var g run.Group
	{
		pollCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return d.Start(pollCtx)
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(func() error {
			log.Info().Str("addr", cfg.Watch.Listen).Msg("starting metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	log.Info().
		Str("region", cfg.AWS.Region).
		Dur("interval", cfg.Watch.Interval).
		Msg("cirrus watch starting")

	err = g.Run()
	if ctx.Err() != nil {
		log.Info().Msg("shutting down")
	}
	return err
}

// buildDaemon opens the provider and assembles the poll loop with its emitters.
func buildDaemon(ctx context.Context, tel *telemetry.Provider, cmd *cobra.Command) (*daemon.Daemon, emitter.Emitter, error) {
	p, err := openProvider(ctx, tel)
	if err != nil {
		return nil, nil, err
	}

	pollers, err := daemon.Pollers(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	pollers = filter.New(cfg.Watch.ExcludeKinds, cfg.Watch.ExcludeIDs).Pollers(pollers)
	if len(pollers) == 0 {
		return nil, nil, fmt.Errorf("watch: every resource kind is excluded")
	}

	promEmitter, err := emitter.NewPrometheusEmitter(tel.Meter())
	if err != nil {
		return nil, nil, fmt.Errorf("create emitter: %w", err)
	}
	emitters := []emitter.Emitter{promEmitter}
	if watchJSON {
		emitters = append(emitters, emitter.NewWriterEmitter(cmd.OutOrStdout()))
	}
	em := emitter.NewMultiEmitter(emitters...)

	metrics, err := daemon.NewDaemonMetricsWithMeter(tel.Meter())
	if err != nil {
		return nil, nil, fmt.Errorf("create daemon metrics: %w", err)
	}

	d, err := daemon.NewDaemon(daemon.Config{
		Interval: cfg.Watch.Interval,
		Provider: p.Name(),
		Region:   p.Region(),
	}, em, metrics, pollers...)
	if err != nil {
		return nil, nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, em, nil
}

func handleHealthz(d *daemon.Daemon) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(d.Health())
	}
}

func handleReadyz(d *daemon.Daemon) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if d.PollCount() == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("no poll completed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
