// Package config loads the single structured configuration object recognized
// by the signal pipeline: defaults, optionally overridden by a config file,
// finally overridden by environment variables (which always win).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the single structured config recognized by the system. The CMS,
// risk, trading, breaker, retry, queue and simulation fields carry the
// external-interfaces configuration schema; database, redis, logging,
// server, broker, symbols and account equity are the ambient process
// settings carried alongside it.
type Config struct {
	CMS       CMSConfig       `json:"cms"`
	Risk      RiskConfig      `json:"risk"`
	Trading   TradingConfig   `json:"trading"`
	Breakers  BreakersConfig  `json:"breaker"`
	Retry     RetryConfig     `json:"retry"`
	Queues    QueuesConfig    `json:"queues"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
	Broker    BrokerConfig    `json:"broker"`
	Simulation bool           `json:"simulation_mode"`

	// Symbols is the set of instruments cmd/signalengine subscribes the
	// pipeline to and seeds the executor's account equity for.
	Symbols       []string `json:"symbols"`
	AccountEquity float64  `json:"account_equity"`
}

// BrokerConfig holds the REST broker's credentials and endpoint, unused in
// simulation mode (§6: "Simulation mode returns a synthetic identifier when
// no broker is configured").
type BrokerConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
}

// CMSConfig holds the Composite Market Score engine's weights, thresholds,
// and per-symbol slot/emission tuning (§4.E, §4.F).
type CMSConfig struct {
	Weights               CMSWeights `json:"weights"`
	ThresholdBuy          float64    `json:"threshold_buy"`
	ThresholdSell         float64    `json:"threshold_sell"`
	SignalEmissionEpsilon float64    `json:"signal_emission_epsilon"`
	SlotStalenessSeconds  int        `json:"slot_staleness_seconds"`
	RegimeWindowBars      int        `json:"regime_window_bars"`
}

// CMSWeights holds the four component weights; auto-normalized to sum 1 by
// Normalize().
type CMSWeights struct {
	Sentiment  float64 `json:"sentiment"`
	Volatility float64 `json:"volatility"`
	Trend      float64 `json:"trend"`
	Event      float64 `json:"event"`
}

// Normalize returns w scaled so its components sum to 1. If all weights are
// zero the default 0.4/0.3/0.2/0.1 split is returned.
func (w CMSWeights) Normalize() CMSWeights {
	sum := w.Sentiment + w.Volatility + w.Trend + w.Event
	if sum <= 0 {
		return CMSWeights{Sentiment: 0.4, Volatility: 0.3, Trend: 0.2, Event: 0.1}
	}
	return CMSWeights{
		Sentiment:  w.Sentiment / sum,
		Volatility: w.Volatility / sum,
		Trend:      w.Trend / sum,
		Event:      w.Event / sum,
	}
}

// RiskConfig holds position sizing and daily-limit configuration (§4.G).
type RiskConfig struct {
	PerTradeFraction     float64 `json:"per_trade_fraction"`
	MaxPositionFraction  float64 `json:"max_position_fraction"`
	ATRStopMultiplier    float64 `json:"atr_stop_multiplier"`
	TrailingStopFraction float64 `json:"trailing_stop_fraction"`
}

// TradingConfig holds the executor's admission-gate limits and the global
// trading-enabled flag (§4.G, §4.F/§5 shared-resource policy).
type TradingConfig struct {
	MaxDailyTrades     int     `json:"max_daily_trades"`
	MaxDailyLoss       float64 `json:"max_daily_loss"`
	MaxPositionSize    float64 `json:"max_position_size"`
	AutoTradingEnabled bool    `json:"auto_trading_enabled"`
}

// BreakersConfig holds per-collaborator circuit breaker thresholds (§4.H).
type BreakersConfig struct {
	Broker CollaboratorBreaker `json:"broker"`
	Store  CollaboratorBreaker `json:"store"`
	Bus    CollaboratorBreaker `json:"bus"`
}

// CollaboratorBreaker is one collaborator's breaker thresholds.
type CollaboratorBreaker struct {
	FailureThreshold int `json:"failure_threshold"`
	RecoverySeconds  int `json:"recovery_seconds"`
}

// RetryConfig holds the exponential-backoff-with-jitter policy (§4.H).
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
}

// QueuesConfig holds the bounded-queue capacities (§4.H).
type QueuesConfig struct {
	StoreWriteQueueCapacity int `json:"store_write_queue_capacity"`
	BusBufferCapacity       int `json:"bus_buffer_capacity"`
}

// DatabaseConfig holds the pgx/v5 connection and pool tuning, ambient to the
// spec (relational store schema details beyond §3's named tables are out of
// scope, but the connection itself is not).
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	DBName          string        `json:"db_name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxConns        int32         `json:"max_conns"`
	MinConns        int32         `json:"min_conns"`
	MaxConnLifetime time.Duration `json:"max_conn_lifetime"`
}

// RedisConfig holds the go-redis/v9 connection used by the Redis-backed bus.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

// ServerConfig holds the out-of-core HTTP/WS collaborator's listen address.
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	AllowedOrigins string `json:"allowed_origins"`
	AuthToken      string `json:"auth_token"`
}

// Load builds the Config from defaults, an optional config file, then
// environment overrides (which always take precedence). The file step reads
// config.json from the working directory when it exists and is skipped
// otherwise.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if fileCfg, err := loadFromFile("config.json"); err == nil {
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		CMS: CMSConfig{
			Weights:               CMSWeights{Sentiment: 0.4, Volatility: 0.3, Trend: 0.2, Event: 0.1},
			ThresholdBuy:          50,
			ThresholdSell:         50,
			SignalEmissionEpsilon: 5,
			SlotStalenessSeconds:  300,
			RegimeWindowBars:      100,
		},
		Risk: RiskConfig{
			PerTradeFraction:     0.02,
			MaxPositionFraction:  0.25,
			ATRStopMultiplier:    1.5,
			TrailingStopFraction: 0.01,
		},
		Trading: TradingConfig{
			MaxDailyTrades:     20,
			MaxDailyLoss:       500,
			MaxPositionSize:    10000,
			AutoTradingEnabled: true,
		},
		Breakers: BreakersConfig{
			Broker: CollaboratorBreaker{FailureThreshold: 5, RecoverySeconds: 60},
			Store:  CollaboratorBreaker{FailureThreshold: 5, RecoverySeconds: 30},
			Bus:    CollaboratorBreaker{FailureThreshold: 5, RecoverySeconds: 30},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    5 * time.Second,
		},
		Queues: QueuesConfig{
			StoreWriteQueueCapacity: 10000,
			BusBufferCapacity:       1000,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "signalengine",
			DBName:          "signalengine",
			SSLMode:         "disable",
			MaxConns:        30,
			MinConns:        10,
			MaxConnLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: "*",
		},
		Broker: BrokerConfig{},
		Simulation:    true,
		Symbols:       []string{"BTCUSDT"},
		AccountEquity: 10000,
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.CMS.Weights.Sentiment = getEnvFloatOrDefault("CMS_WEIGHT_SENTIMENT", cfg.CMS.Weights.Sentiment)
	cfg.CMS.Weights.Volatility = getEnvFloatOrDefault("CMS_WEIGHT_VOLATILITY", cfg.CMS.Weights.Volatility)
	cfg.CMS.Weights.Trend = getEnvFloatOrDefault("CMS_WEIGHT_TREND", cfg.CMS.Weights.Trend)
	cfg.CMS.Weights.Event = getEnvFloatOrDefault("CMS_WEIGHT_EVENT", cfg.CMS.Weights.Event)
	cfg.CMS.ThresholdBuy = getEnvFloatOrDefault("CMS_THRESHOLD_BUY", cfg.CMS.ThresholdBuy)
	cfg.CMS.ThresholdSell = getEnvFloatOrDefault("CMS_THRESHOLD_SELL", cfg.CMS.ThresholdSell)
	cfg.CMS.SignalEmissionEpsilon = getEnvFloatOrDefault("CMS_SIGNAL_EMISSION_EPSILON", cfg.CMS.SignalEmissionEpsilon)
	cfg.CMS.SlotStalenessSeconds = getEnvIntOrDefault("CMS_SLOT_STALENESS_SECONDS", cfg.CMS.SlotStalenessSeconds)
	cfg.CMS.RegimeWindowBars = getEnvIntOrDefault("CMS_REGIME_WINDOW_BARS", cfg.CMS.RegimeWindowBars)

	cfg.Risk.PerTradeFraction = getEnvFloatOrDefault("RISK_PER_TRADE_FRACTION", cfg.Risk.PerTradeFraction)
	cfg.Risk.MaxPositionFraction = getEnvFloatOrDefault("RISK_MAX_POSITION_FRACTION", cfg.Risk.MaxPositionFraction)
	cfg.Risk.ATRStopMultiplier = getEnvFloatOrDefault("RISK_ATR_STOP_MULTIPLIER", cfg.Risk.ATRStopMultiplier)
	cfg.Risk.TrailingStopFraction = getEnvFloatOrDefault("RISK_TRAILING_STOP_FRACTION", cfg.Risk.TrailingStopFraction)

	cfg.Trading.MaxDailyTrades = getEnvIntOrDefault("MAX_DAILY_TRADES", cfg.Trading.MaxDailyTrades)
	cfg.Trading.MaxDailyLoss = getEnvFloatOrDefault("MAX_DAILY_LOSS", cfg.Trading.MaxDailyLoss)
	cfg.Trading.MaxPositionSize = getEnvFloatOrDefault("MAX_POSITION_SIZE", cfg.Trading.MaxPositionSize)
	cfg.Trading.AutoTradingEnabled = getEnvOrDefault("AUTO_TRADING_ENABLED", boolStr(cfg.Trading.AutoTradingEnabled)) == "true"

	cfg.Retry.MaxAttempts = getEnvIntOrDefault("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.BaseDelay = getEnvDurationOrDefault("RETRY_BASE_DELAY", cfg.Retry.BaseDelay)
	cfg.Retry.MaxDelay = getEnvDurationOrDefault("RETRY_MAX_DELAY", cfg.Retry.MaxDelay)

	cfg.Queues.StoreWriteQueueCapacity = getEnvIntOrDefault("STORE_WRITE_QUEUE_CAPACITY", cfg.Queues.StoreWriteQueueCapacity)
	cfg.Queues.BusBufferCapacity = getEnvIntOrDefault("BUS_BUFFER_CAPACITY", cfg.Queues.BusBufferCapacity)

	cfg.Database.Host = getEnvOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvIntOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvOrDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnvOrDefault("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnvOrDefault("DB_SSL_MODE", cfg.Database.SSLMode)

	cfg.Redis.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.Redis.Enabled)) == "true"
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvIntOrDefault("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
	cfg.Logging.JSONFormat = getEnvOrDefault("LOG_JSON", boolStr(cfg.Logging.JSONFormat)) == "true"
	cfg.Logging.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", boolStr(cfg.Logging.IncludeFile)) == "true"

	cfg.Server.Port = getEnvIntOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.AuthToken = getEnvOrDefault("SERVER_AUTH_TOKEN", cfg.Server.AuthToken)

	cfg.Broker.APIKey = getEnvOrDefault("BROKER_API_KEY", cfg.Broker.APIKey)
	cfg.Broker.SecretKey = getEnvOrDefault("BROKER_SECRET_KEY", cfg.Broker.SecretKey)
	cfg.Broker.BaseURL = getEnvOrDefault("BROKER_BASE_URL", cfg.Broker.BaseURL)

	cfg.Simulation = getEnvOrDefault("SIMULATION_MODE", boolStr(cfg.Simulation)) == "true"
	cfg.AccountEquity = getEnvFloatOrDefault("ACCOUNT_EQUITY", cfg.AccountEquity)
	if raw := os.Getenv("SYMBOLS"); raw != "" {
		cfg.Symbols = strings.Split(raw, ",")
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes a sample configuration file to disk.
func GenerateSampleConfig(filename string) error {
	cfg := defaultConfig()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
