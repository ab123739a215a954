package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/analyzer"
	"github.com/iyulab/cyber-defense/internal/browser"
	"github.com/iyulab/cyber-defense/internal/config"
	"github.com/iyulab/cyber-defense/internal/demo"
	"github.com/iyulab/cyber-defense/internal/logging"
	"github.com/iyulab/cyber-defense/internal/server"
	"github.com/iyulab/cyber-defense/internal/store"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "override server.port")
	cmd.Flags().Bool("no-seed", false, "skip demo data seeding")
	cmd.Flags().Bool("open", false, "open the dashboard (first CORS origin) in a browser")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	noSeed, _ := cmd.Flags().GetBool("no-seed")
	open, _ := cmd.Flags().GetBool("open")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	logger, err := logging.New(cfg.Environment, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Database.URL)
	if err != nil {
		return err
	}
	st := store.New(db, logger.Named("store"))
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	if cfg.Demo.Seed && !noSeed {
		if _, err := demo.SeedPersistent(ctx, st, time.Now(), logger.Named("demo")); err != nil {
			// demo data is optional
			logger.Warn("demo seeding failed", zap.Error(err))
		}
	}

	provider, err := analyzer.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Endpoint, cfg.LLM.Timeout)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	metrics := server.NewMetrics()
	az := analyzer.New(provider,
		analyzer.WithLogger(logger.Named("analyzer")),
		analyzer.WithObserver(metrics),
	)
	srv := server.New(st, az, cfg,
		server.WithLogger(logger.Named("http")),
		server.WithMetrics(metrics),
	)

	// Requests outlive the signal so Shutdown can drain them.
	addr, err := srv.Start(context.WithoutCancel(ctx), cfg.Addr())
	if err != nil {
		return err
	}
	logger.Info("cyberdefense started",
		zap.String("addr", addr),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("version", version),
	)

	if open && len(cfg.Server.CORSOrigins) > 0 {
		if err := browser.Open(cfg.Server.CORSOrigins[0]); err != nil {
			logger.Warn("could not open dashboard", zap.Error(err))
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
