package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"code.cloudfoundry.org/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/hlsfleet/internal/config"
	"github.com/tamzrod/hlsfleet/internal/controller"
	"github.com/tamzrod/hlsfleet/internal/metrics"
	"github.com/tamzrod/hlsfleet/internal/registry"
	"github.com/tamzrod/hlsfleet/internal/runtime/docker"
)

func newControllerCommand(gp *globalParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Run the fleet controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runController(cmd.Context(), gp)
		},
	}
	cmd.AddCommand(newSetCommand(gp))
	return cmd
}

func newSetCommand(gp *globalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update a registry setting (e.g. monitor_interval, alert_threshold)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gp.configPath, requireRegistry)
			if err != nil {
				return err
			}
			reg, err := registry.New(registry.Config{BaseURL: cfg.Registry.URL, Timeout: cfg.Registry.Timeout()})
			if err != nil {
				return err
			}

			stored, err := reg.UpdateSetting(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", args[0], stored)
			return nil
		},
	}
}

func requireRegistry(cfg *config.Config) error {
	if cfg.Registry.URL == "" {
		return errors.New("registry: url is required (REGISTRY_URL)")
	}
	return nil
}

func runController(ctx context.Context, gp *globalParams) error {
	cfg, err := loadConfig(gp.configPath, config.ValidateController)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.New(registry.Config{BaseURL: cfg.Registry.URL, Timeout: cfg.Registry.Timeout()})
	if err != nil {
		return err
	}

	rt, err := docker.New(docker.Config{
		Host:    cfg.Runtime.Host,
		Image:   cfg.Runtime.Image,
		Network: cfg.Runtime.Network,
	}, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	promReg := prometheus.NewRegistry()

	ctl, err := controller.New(
		controller.Config{
			Interval:    cfg.Controller.PollInterval(),
			RegistryURL: reg.BaseURL(),
			WorkerEnv:   workerEnv(cfg),
		},
		reg,
		rt,
		clock.NewClock(),
		log.Named("controller"),
		metrics.NewController(promReg),
	)
	if err != nil {
		return err
	}

	log.Info("controller starting",
		zap.String("registry", reg.BaseURL()),
		zap.String("image", cfg.Runtime.Image),
		zap.Duration("interval", cfg.Controller.PollInterval()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctl.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Metrics.Listen, promReg, log)
	})
	runErr := g.Wait()

	// Drain: ctx is already done, so removal gets its own bounded context.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Controller.ShutdownGrace())
	defer cancel()
	if err := ctl.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown left workers behind", zap.Error(err))
	}

	return runErr
}

// workerEnv is what every worker receives on top of its channel identity.
func workerEnv(cfg *config.Config) map[string]string {
	env := map[string]string{}
	if cfg.Status.Enabled() {
		env["STATUS_ENDPOINT"] = cfg.Status.Endpoint
		env["STATUS_UNIT_ID"] = strconv.Itoa(int(cfg.Status.UnitID))
	}
	return env
}
