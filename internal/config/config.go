package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Version is the build version reported on the /health endpoint.
const Version = "0.1.0"

// Config is the single frozen configuration record for both processes.
// It is loaded once at startup; no environment lookups happen outside Load.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Binance    BinanceConfig    `mapstructure:"binance"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Gates      GatesConfig      `mapstructure:"gates"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// DatabaseConfig contains PostgreSQL connection settings for the durable store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig backs the 5-minute on-chain/liquidation feature cache.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BinanceConfig contains exchange connectivity settings.
type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	Testnet   bool   `mapstructure:"testnet"`
}

// TelegramConfig contains notifier settings (C11 collaborator).
type TelegramConfig struct {
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
}

// ClassifierConfig controls the optional ensemble classifier (G4) and its
// degraded-mode heuristic fallback.
type ClassifierConfig struct {
	Enabled                bool    `mapstructure:"enabled"`
	Endpoint               string  `mapstructure:"endpoint"`
	TimeoutMS              int     `mapstructure:"timeout_ms"`
	DegradedMode           bool    `mapstructure:"degraded_mode"`
	HeuristicMinConfidence float64 `mapstructure:"heuristic_min_confidence"`
	HeuristicMaxConfidence float64 `mapstructure:"heuristic_max_confidence"`
}

// TradingConfig mirrors spec.md §6's enumerated process config.
type TradingConfig struct {
	Symbol               string        `mapstructure:"symbol"`
	Margin               float64       `mapstructure:"margin"`
	Leverage             int           `mapstructure:"leverage"`
	Notional             float64       `mapstructure:"notional"`
	TakeProfitPct        float64       `mapstructure:"tp"`
	StopLossPct          float64       `mapstructure:"sl"`
	DailyTarget          float64       `mapstructure:"daily_target"`
	DailyStop            float64       `mapstructure:"daily_stop"`
	MaxTrades            int           `mapstructure:"max_trades"`
	MaxConsecutiveLosses int           `mapstructure:"max_consecutive_losses"`
	MaxHoldMinutes       int           `mapstructure:"max_hold_min"`
	CooldownMinutes      int           `mapstructure:"cooldown_min"`
	UseDegradedExternal  bool          `mapstructure:"use_degraded_external_data"`
	TickSignal           time.Duration `mapstructure:"tick_signal"`
	TickVerifier         time.Duration `mapstructure:"tick_verifier"`
	HeartbeatWarn        time.Duration `mapstructure:"heartbeat_warn"`
	HeartbeatCrit        time.Duration `mapstructure:"heartbeat_crit"`
}

// GatesConfig contains gate-pipeline thresholds (§6).
type GatesConfig struct {
	AIConfidenceMin float64 `mapstructure:"ai_confidence_min"`
	ContextMin      float64 `mapstructure:"context_min"`
	RegimeConfMin   float64 `mapstructure:"regime_conf_min"`
	ExhaustionMax   float64 `mapstructure:"exhaustion_max"`
	StructureMin    float64 `mapstructure:"structure_min"`
	SetupMin        int     `mapstructure:"setup_min"`
	MTFMin          int     `mapstructure:"mtf_min"`
	RiskFactorsMax  int     `mapstructure:"risk_factors_max"`
}

// MonitoringConfig controls the Prometheus metrics server.
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load reads configuration from an optional file plus CRYPTOCORE_* env vars
// into one frozen Config. This is the only place environment lookups happen.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CRYPTOCORE")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "btc-signal-core")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "btc_signal_core")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("binance.testnet", true)

	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.timeout_ms", 5000)
	v.SetDefault("classifier.degraded_mode", true)
	v.SetDefault("classifier.heuristic_min_confidence", 0.3)
	v.SetDefault("classifier.heuristic_max_confidence", 0.95)

	v.SetDefault("trading.symbol", "BTCUSDT")
	v.SetDefault("trading.margin", 150.0)
	v.SetDefault("trading.leverage", 20)
	v.SetDefault("trading.notional", 3000.0)
	v.SetDefault("trading.tp", 0.005)
	v.SetDefault("trading.sl", 0.0025)
	v.SetDefault("trading.daily_target", 10.0)
	v.SetDefault("trading.daily_stop", -15.0)
	v.SetDefault("trading.max_trades", 3)
	v.SetDefault("trading.max_consecutive_losses", 2)
	v.SetDefault("trading.max_hold_min", 240)
	v.SetDefault("trading.cooldown_min", 60)
	v.SetDefault("trading.use_degraded_external_data", true)
	v.SetDefault("trading.tick_signal", "60s")
	v.SetDefault("trading.tick_verifier", "30s")
	v.SetDefault("trading.heartbeat_warn", "180s")
	v.SetDefault("trading.heartbeat_crit", "600s")

	v.SetDefault("gates.ai_confidence_min", 0.65)
	v.SetDefault("gates.context_min", 0.5)
	v.SetDefault("gates.regime_conf_min", 0.65)
	v.SetDefault("gates.exhaustion_max", 0.5)
	v.SetDefault("gates.structure_min", 0.6)
	v.SetDefault("gates.setup_min", 70)
	v.SetDefault("gates.mtf_min", 2)
	v.SetDefault("gates.risk_factors_max", 1)

	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// Validate checks that the loaded configuration is internally consistent.
// A failure here is a Fatal startup error (§6 exit codes).
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol must not be empty")
	}
	if c.Trading.Margin <= 0 || c.Trading.Leverage <= 0 {
		return fmt.Errorf("trading.margin and trading.leverage must be positive")
	}
	if c.Trading.TakeProfitPct <= 0 || c.Trading.StopLossPct <= 0 {
		return fmt.Errorf("trading.tp and trading.sl must be positive")
	}
	if c.Trading.MaxTrades <= 0 {
		return fmt.Errorf("trading.max_trades must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host must not be empty")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode, c.PoolSize,
	)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
