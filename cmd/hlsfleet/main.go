package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/hlsfleet/internal/config"
)

type globalParams struct {
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var gp globalParams

	root := &cobra.Command{
		Use:          "hlsfleet [command]",
		Short:        "HLS stream monitor fleet",
		Long:         "hlsfleet keeps one monitor worker per registered channel and probes each channel's HLS stream.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&gp.configPath, "config", "c", "", "path to the YAML config file (environment and defaults only when empty)")

	root.AddCommand(newControllerCommand(&gp), newMonitorCommand(&gp))
	return root
}

// loadConfig loads the layered config and applies the role check.
func loadConfig(path string, role func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if role != nil {
		if err := role(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	zc.Level = lvl

	return zc.Build()
}
