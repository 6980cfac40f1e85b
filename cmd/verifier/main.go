// Command verifier runs C7-C9: it polls live price, resolves pending
// signals against their take-profit/stop-loss/timeout conditions, applies
// the outcome to the daily budget, and scores trade quality.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/btcsignalcore/engine/internal/budget"
	"github.com/btcsignalcore/engine/internal/config"
	"github.com/btcsignalcore/engine/internal/market"
	"github.com/btcsignalcore/engine/internal/metrics"
	"github.com/btcsignalcore/engine/internal/notify"
	"github.com/btcsignalcore/engine/internal/quality"
	"github.com/btcsignalcore/engine/internal/risk"
	"github.com/btcsignalcore/engine/internal/store"
	"github.com/btcsignalcore/engine/internal/tracker"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "verifier",
	Short: "Polls price and resolves pending signals against TP/SL/timeout (C7-C9)",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional, defaults to ./configs/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	procLog := config.NewProcessLogger("verifier")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to durable store: %w", err)
	}
	defer st.Close()

	migrator := store.NewMigrator(st.Pool(), "migrations")
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Degraded defaults: see cmd/signal-engine and DESIGN.md.
	cbManager := risk.NewCircuitBreakerManager()
	st.WithBreaker(cbManager)

	provider := market.NewBinanceProvider(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Trading.Symbol, cfg.Binance.Testnet, procLog).WithBreaker(cbManager)

	channels := []notify.Channel{notify.LogChannel{}}
	if cfg.App.Environment == "development" {
		channels = append(channels, notify.ConsoleChannel{})
	}
	if cfg.Telegram.BotToken != "" {
		tgChannel, err := notify.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			procLog.Warn().Err(err).Msg("telegram notification channel unavailable, continuing without it")
		} else {
			channels = append(channels, tgChannel)
		}
	}
	notifier := notify.NewManager(channels...)

	budgetManager := budget.New(st)
	budgetManager.Notifier = notifier

	scorer := quality.New(st)
	scorer.Notifier = notifier

	trk := tracker.New(provider, st, budgetManager, scorer, config.NewProcessLogger("tracker_loop"))

	metricsServer := metrics.NewServer(cfg.Monitoring.PrometheusPort, procLog)
	if cfg.Monitoring.EnableMetrics {
		go func() {
			if err := metricsServer.Start(); err != nil {
				procLog.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go trk.Run(ctx, cfg.Trading.TickVerifier)
	go runDailyStatsRefresh(ctx, st, procLog)
	go runDailySummary(ctx, budgetManager, notifier, procLog)

	procLog.Info().Dur("tick", cfg.Trading.TickVerifier).Msg("verifier started")

	<-sigChan
	procLog.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	procLog.Info().Msg("verifier shut down cleanly")
	return nil
}
