package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// History sources selectable with HISTORY_SOURCE.
const (
	SourceBinance = "binance"
	SourceSQLite  = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Listeners
	HTTPAddr    string
	MetricsAddr string
	LogLevel    string

	// History
	BinanceBaseURL  string
	BinanceInterval string
	HistorySource   string // "binance" or "sqlite"
	SQLitePath      string
	ArchiveEnabled  bool

	// Cache (empty RedisAddr disables it)
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// Engine
	BacktestTimeout time.Duration
	MaxDays         int

	// Auth (empty disables TOTP checks)
	APITOTPSecret string

	// Notifications (each channel is off when unset)
	NotifyWebhookURL string
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		BinanceBaseURL:  getEnv("BINANCE_BASE_URL", "https://api.binance.com/api/v3"),
		BinanceInterval: getEnv("BINANCE_INTERVAL", "1h"),
		HistorySource:   strings.ToLower(getEnv("HISTORY_SOURCE", SourceBinance)),
		SQLitePath:      getEnv("SQLITE_PATH", "data/candles.db"),
		ArchiveEnabled:  getBool("ARCHIVE_ENABLED", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute),

		BacktestTimeout: getDuration("BACKTEST_TIMEOUT", 30*time.Second),
		MaxDays:         getInt("MAX_DAYS", 180),

		APITOTPSecret: getEnv("API_TOTP_SECRET", ""),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.HistorySource {
	case SourceBinance, SourceSQLite:
	default:
		return fmt.Errorf("HISTORY_SOURCE must be %q or %q, got %q", SourceBinance, SourceSQLite, c.HistorySource)
	}
	if c.MaxDays <= 0 {
		return fmt.Errorf("MAX_DAYS must be positive, got %d", c.MaxDays)
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.HistorySource == SourceSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite history source")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
