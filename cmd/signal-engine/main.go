// Command signal-engine runs C1-C6: it assembles market state from Binance,
// derives the feature vector, classifies the regime, proposes a strategy,
// runs it through the gate pipeline and persists any PENDING signal that
// survives, notifying on every accept.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/btcsignalcore/engine/internal/classifier"
	"github.com/btcsignalcore/engine/internal/config"
	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/market"
	"github.com/btcsignalcore/engine/internal/metrics"
	"github.com/btcsignalcore/engine/internal/notify"
	"github.com/btcsignalcore/engine/internal/risk"
	"github.com/btcsignalcore/engine/internal/signal"
	"github.com/btcsignalcore/engine/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "signal-engine",
	Short: "Runs the market-data assembler through the gate pipeline (C1-C6)",
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
	procLog := config.NewProcessLogger("signal-engine")

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

	// Degraded defaults: config.Config carries no breaker thresholds, so
	// the engine runs every breaker on its built-in defaults (see
	// DESIGN.md).
	cbManager := risk.NewCircuitBreakerManager()
	st.WithBreaker(cbManager)

	provider := market.NewBinanceProvider(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Trading.Symbol, cfg.Binance.Testnet, procLog).WithBreaker(cbManager)
	snapshot := market.NewSnapshot()
	backfillMarket(ctx, provider, snapshot, procLog)

	stopStream, err := provider.OpenStream(ctx, cfg.Trading.Symbol, func(ev market.Event) {
		applyStreamEvent(snapshot, ev)
	})
	if err != nil {
		return fmt.Errorf("open market data stream: %w", err)
	}
	defer stopStream()

	var extProvider features.ExternalProvider
	if cfg.Trading.UseDegradedExternal {
		extProvider = features.DegradedProvider{}
	} else {
		extProvider = features.NewHTTPProvider("", "", cfg.Trading.Symbol, procLog)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	extCache := features.NewExtCache(rdb, extProvider, procLog)
	featureState := features.NewState()

	var cls signal.Classifier
	if cfg.Classifier.Enabled && !cfg.Classifier.DegradedMode {
		cls = classifier.New(classifier.Config{
			Endpoint: cfg.Classifier.Endpoint,
			Timeout:  time.Duration(cfg.Classifier.TimeoutMS) * time.Millisecond,
		}, cbManager)
	}

	notifier := notify.NewManager(buildChannels(cfg, procLog)...)

	engine := &signal.Engine{
		Provider:        provider,
		Snapshot:        snapshot,
		ExtCache:        extCache,
		State:           featureState,
		Store:           st,
		Classifier:      cls,
		Notifier:        notifier,
		RegimeNotifier:  notifier,
		Log:             config.NewProcessLogger("signal_engine_loop"),
		BotName:         "signal-engine",
		Margin:          cfg.Trading.Margin,
		Leverage:        cfg.Trading.Leverage,
		AIConfidenceMin: cfg.Gates.AIConfidenceMin,
	}

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

	go engine.Run(ctx, cfg.Trading.TickSignal)

	procLog.Info().Str("symbol", cfg.Trading.Symbol).Dur("tick", cfg.Trading.TickSignal).Msg("signal engine started")

	<-sigChan
	procLog.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	procLog.Info().Msg("signal engine shut down cleanly")
	return nil
}

// buildChannels assembles the notification fan-out: structured logs always,
// console output in development, and Telegram when a bot token is configured.
func buildChannels(cfg *config.Config, log zerolog.Logger) []notify.Channel {
	channels := []notify.Channel{notify.LogChannel{}}
	if cfg.App.Environment == "development" {
		channels = append(channels, notify.ConsoleChannel{})
	}
	if cfg.Telegram.BotToken != "" {
		tgChannel, err := notify.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notification channel unavailable, continuing without it")
		} else {
			channels = append(channels, tgChannel)
		}
	}
	return channels
}
