package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/hlsfleet/internal/config"
	"github.com/tamzrod/hlsfleet/internal/metrics"
	"github.com/tamzrod/hlsfleet/internal/monitor"
	"github.com/tamzrod/hlsfleet/internal/prober"
	"github.com/tamzrod/hlsfleet/internal/registry"
	"github.com/tamzrod/hlsfleet/internal/writer"
)

func newMonitorCommand(gp *globalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Probe one channel (worker entrypoint)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), gp)
		},
	}
}

func runMonitor(ctx context.Context, gp *globalParams) error {
	cfg, err := loadConfig(gp.configPath, config.ValidateMonitor)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.Int("channel_id", cfg.Channel.ID))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name := applyRegistry(ctx, cfg, log)

	promReg := prometheus.NewRegistry()

	p, err := prober.Build(cfg, promReg, log.Named("prober"))
	if err != nil {
		return err
	}

	var sw writer.StatusWriter
	csw, closeStatus, statusOK, err := writer.BuildStatusWriter(cfg, name)
	if err != nil {
		return err
	}
	if statusOK {
		defer func() { _ = closeStatus() }()
		sw = csw
	}

	log.Info("monitor starting",
		zap.String("url", cfg.Channel.URL),
		zap.String("name", name),
		zap.Duration("interval", cfg.Prober.Interval()),
		zap.Int("breaker_threshold", cfg.Prober.Breaker.FailureThreshold),
		zap.Bool("status", statusOK),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitor.Run(gctx, p, sw, clock.NewClock(), log.Named("status"))
		return nil
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Metrics.Listen, promReg, log)
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	// The current cycle is abandoned if it outlives the grace period.
	select {
	case err := <-done:
		log.Info("monitor stopped")
		return err
	case <-time.After(cfg.Controller.ShutdownGrace()):
		log.Warn("monitor did not stop within grace period", zap.Duration("grace", cfg.Controller.ShutdownGrace()))
		return nil
	}
}

// applyRegistry overlays registry settings onto cfg and returns the channel
// name for the status block. Best effort: registry failures fall back to
// local configuration.
func applyRegistry(ctx context.Context, cfg *config.Config, log *zap.Logger) string {
	name := "ch-" + strconv.Itoa(cfg.Channel.ID)

	if cfg.Registry.URL == "" {
		log.Info("no registry configured, using local settings")
		return name
	}

	reg, err := registry.New(registry.Config{BaseURL: cfg.Registry.URL, Timeout: cfg.Registry.Timeout()})
	if err != nil {
		log.Warn("registry client failed, using local settings", zap.Error(err))
		return name
	}

	settings, err := reg.Settings(ctx)
	if err != nil {
		log.Warn("registry settings unavailable, using local settings", zap.Error(err))
	} else {
		applied, err := config.ApplySettings(cfg, settings)
		if err != nil {
			log.Warn("ignoring invalid registry settings", zap.Error(err))
		}
		if len(applied) > 0 {
			log.Info("registry settings applied", zap.Strings("keys", applied))
		}
	}

	ch, err := reg.Channel(ctx, cfg.Channel.ID)
	if err != nil {
		log.Warn("channel record unavailable", zap.Error(err))
		return name
	}
	if ch.Name != "" {
		name = ch.Name
	}
	return name
}
