package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gamewatch/internal/config"
	"gamewatch/internal/loader"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until interrupted",
	RunE:  runRun,
}

var checkFlags struct {
	noSeed bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle and exit",
	Long:  "check connects to Discord, runs a single cycle and exits. The HTTP\nserver is not started.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlags.noSeed, "no-seed", false, "Do not seed state before the cycle")
}

func runRun(cmd *cobra.Command, _ []string) error {
	return start(cmd.Context(), loader.Options{})
}

func runCheck(cmd *cobra.Command, _ []string) error {
	return start(cmd.Context(), loader.Options{
		RunOnce:       true,
		DisableServer: true,
		SkipSeed:      checkFlags.noSeed,
	})
}

func start(parent context.Context, options loader.Options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := loader.NewLogger(cfg.Log, os.Stderr)
	logger.Info("Loaded configuration", "path", configPath, "mode", cfg.Bot.Mode, "interval", cfg.Bot.Interval)

	app, err := loader.NewLoader(cfg, options, logger).Build()
	if err != nil {
		return fmt.Errorf("failed to build bot: %w", err)
	}

	logger.Info("Starting bot", "name", app.Bot.Name())
	if err := app.Run(ctx); err != nil {
		return err
	}

	logger.Info("Bot stopped")
	return nil
}
