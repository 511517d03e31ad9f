package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned when no bot token is configured
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

// Storage drivers
const (
	DriverSQLite     = "sqlite"
	DriverClickHouse = "clickhouse"
	DriverMock       = "mock"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string

	// Bot mode configuration; a non-empty WebhookURL selects webhook mode
	WebhookURL    string
	WebhookSecret string
	Port          string

	// Deck configuration
	CardsPath         string
	HintsPath         string
	ImageHostToken    string
	ImageDir          string
	ImageFetchTimeout time.Duration

	// Pacing
	FollowUpDelay time.Duration
	HintInterval  time.Duration
	CardInterval  time.Duration
	GreetingPause time.Duration

	StorageDriver string
	SQLitePath    string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	LogLevel  string
	LogFormat string
}

// WebhookMode reports whether updates arrive by webhook instead of polling
func (c *Config) WebhookMode() bool {
	return c.WebhookURL != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = firstEnv("TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, ErrMissingToken
	}

	config.WebhookURL = firstEnv("WEBHOOK_URL", "RENDER_EXTERNAL_URL")
	config.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	config.Port = envOr("PORT", "8080")
	if _, err := strconv.Atoi(config.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	config.CardsPath = envOr("CARDS_PATH", "cards.json")
	config.HintsPath = envOr("HINTS_PATH", "help.json")
	config.ImageHostToken = firstEnv("IMAGE_HOST_TOKEN", "GITHUB_TOKEN")
	config.ImageDir = envOr("IMAGE_DIR", "cards")

	var err error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"IMAGE_FETCH_TIMEOUT", 30 * time.Second, &config.ImageFetchTimeout},
		{"FOLLOWUP_DELAY", 5 * time.Minute, &config.FollowUpDelay},
		{"HINT_INTERVAL", 10 * time.Second, &config.HintInterval},
		{"CARD_INTERVAL", 2 * time.Second, &config.CardInterval},
		{"GREETING_PAUSE", 2 * time.Second, &config.GreetingPause},
	}
	for _, d := range durations {
		if *d.dest, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if err := loadStorage(config); err != nil {
		return nil, err
	}

	config.LogLevel = envOr("LOG_LEVEL", "info")
	config.LogFormat = envOr("LOG_FORMAT", "json")
	if config.LogFormat != "json" && config.LogFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (want json or console)", config.LogFormat)
	}

	return config, nil
}

// StorageFromEnv loads only the storage and logging settings. Offline tools use it
// to reach the session store without a bot token.
func StorageFromEnv() (*Config, error) {
	config := &Config{
		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "console"),
	}
	if err := loadStorage(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadStorage(config *Config) error {
	// Use Mock DB (default: false) wins over STORAGE_DRIVER
	config.StorageDriver = strings.ToLower(envOr("STORAGE_DRIVER", DriverSQLite))
	if os.Getenv("USE_MOCK_DB") == "true" {
		config.StorageDriver = DriverMock
	}

	switch config.StorageDriver {
	case DriverMock:
	case DriverSQLite:
		config.SQLitePath = envOr("SQLITE_PATH", "bot_database.db")
	case DriverClickHouse:
		return loadClickHouse(config)
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q (want sqlite, clickhouse or mock)", config.StorageDriver)
	}
	return nil
}

func loadClickHouse(config *Config) error {
	config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
	if config.ClickHouseHost == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_DRIVER is clickhouse")
	}

	portStr := os.Getenv("CLICKHOUSE_PORT")
	if portStr == "" {
		config.ClickHousePort = 9000 // Default ClickHouse native port
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		config.ClickHousePort = port
	}

	config.ClickHouseDatabase = envOr("CLICKHOUSE_DATABASE", "default")
	config.ClickHouseUser = envOr("CLICKHOUSE_USER", "default")
	// Password is optional, can be empty
	config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
	config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
