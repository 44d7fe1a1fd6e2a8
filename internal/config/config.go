// Package config loads the server configuration from flags, environment variables, a .env file and defaults.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/songrequest/server/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Telegram TelegramConfig
	Server   ServerConfig
	Dialog   DialogConfig
	Catalog  CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `env:"LOG_FORMAT" validate:"omitempty,oneof=json console"`
}

// DataConfig holds on-disk locations.
type DataConfig struct {
	// BasePath is the directory holding the database and the catalog file.
	BasePath string `env:"DATA_PATH" validate:"required"`
	// DatabasePath defaults to {BasePath}/songrequest.db.
	DatabasePath string `env:"DATABASE_PATH" validate:"required"`
	// CatalogFile is where uploaded catalogs are written (default: {BasePath}/tracklist.txt).
	CatalogFile string `env:"CATALOG_FILE" validate:"required"`
}

// TelegramConfig holds chat transport configuration.
type TelegramConfig struct {
	Enabled     bool
	Token       string        `env:"TELEGRAM_TOKEN" validate:"required_if=Enabled true"`
	Channel     string        `env:"TELEGRAM_CHANNEL" validate:"required_if=Enabled true,omitempty,chatref"`
	PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" validate:"gte=0"`
	Workers     int           `env:"TELEGRAM_WORKERS" validate:"gte=1"`
	Debug       bool
}

// ServerConfig holds HTTP admin server configuration.
type ServerConfig struct {
	Enabled      bool
	Port         string        `env:"SERVER_PORT" validate:"required"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT"`
	// AllowedOrigins enables CORS for the listed dashboard origins.
	AllowedOrigins []string `env:"CORS_ORIGINS" validate:"dive,url"`
}

// DialogConfig holds dialog behaviour and texts.
type DialogConfig struct {
	// RateLimit is the number of utterances per second accepted per session.
	RateLimit float64 `env:"DIALOG_RATE_LIMIT" validate:"gt=0"`
	// RateBurst is the number of utterances accepted immediately per session.
	RateBurst int `env:"DIALOG_RATE_BURST" validate:"gte=1"`
	// SessionTTL evicts sessions idle for longer than this.
	SessionTTL time.Duration `env:"DIALOG_SESSION_TTL" validate:"gt=0"`
	// MessagesFile optionally points to a YAML file overriding Messages.
	MessagesFile string `env:"MESSAGES_FILE"`
	Messages     Messages
}

// CatalogConfig holds catalog reload behaviour.
type CatalogConfig struct {
	// Watch reloads the catalog when CatalogFile changes on disk.
	Watch bool
	// SettleDelay waits for writes to settle before reloading.
	SettleDelay time.Duration `env:"CATALOG_SETTLE_DELAY" validate:"gte=0"`
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("songrequest", pflag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, console); derived from env when empty")
	dataPath := fs.String("data-path", "", "Directory for the database and catalog file")
	dbPath := fs.String("database-path", "", "SQLite database path (default: {data-path}/songrequest.db)")
	catalogFile := fs.String("catalog-file", "", "Catalog file path (default: {data-path}/tracklist.txt)")

	tgEnabled := fs.String("telegram-enabled", "", "Run the Telegram bot (default: true)")
	tgToken := fs.String("telegram-token", "", "Telegram bot token")
	tgChannel := fs.String("telegram-channel", "", "Channel that receives announcements (ID or @name)")
	tgPollTimeout := fs.String("telegram-poll-timeout", "", "Long-poll timeout (default: 60s)")
	tgWorkers := fs.String("telegram-workers", "", "Update dispatch workers (default: 4)")
	tgDebug := fs.String("telegram-debug", "", "Log Telegram API traffic (default: false)")

	serverEnabled := fs.String("server-enabled", "", "Run the HTTP admin server (default: true)")
	serverPort := fs.String("port", "", "HTTP server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated origins allowed to call the API")

	rateLimit := fs.String("dialog-rate-limit", "", "Utterances per second per session (default: 2)")
	rateBurst := fs.String("dialog-rate-burst", "", "Utterance burst per session (default: 5)")
	sessionTTL := fs.String("dialog-session-ttl", "", "Forget sessions idle for this long (default: 24h)")
	messagesFile := fs.String("messages-file", "", "YAML file overriding dialog texts")

	watchCatalog := fs.String("watch-catalog", "", "Reload catalog when the file changes (default: true)")
	settleDelay := fs.String("catalog-settle-delay", "", "Delay before reloading a changed catalog (default: 500ms)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Data: DataConfig{
			BasePath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			DatabasePath: getConfigValue(*dbPath, "DATABASE_PATH", ""),
			CatalogFile:  getConfigValue(*catalogFile, "CATALOG_FILE", ""),
		},
		Telegram: TelegramConfig{
			Enabled: getBoolConfigValue(*tgEnabled, "TELEGRAM_ENABLED", true),
			Token:   getConfigValue(*tgToken, "TELEGRAM_TOKEN", ""),
			Channel: getConfigValue(*tgChannel, "TELEGRAM_CHANNEL", ""),
			Workers: getIntConfigValue(*tgWorkers, "TELEGRAM_WORKERS", 4),
			Debug:   getBoolConfigValue(*tgDebug, "TELEGRAM_DEBUG", false),
		},
		Server: ServerConfig{
			Enabled: getBoolConfigValue(*serverEnabled, "SERVER_ENABLED", true),
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Dialog: DialogConfig{
			RateLimit:    getFloatConfigValue(*rateLimit, "DIALOG_RATE_LIMIT", 2),
			RateBurst:    getIntConfigValue(*rateBurst, "DIALOG_RATE_BURST", 5),
			MessagesFile: getConfigValue(*messagesFile, "MESSAGES_FILE", ""),
			Messages:     DefaultMessages(),
		},
		Catalog: CatalogConfig{
			Watch: getBoolConfigValue(*watchCatalog, "WATCH_CATALOG", true),
		},
	}

	durations := []struct {
		flag, envKey, def string
		dest              *time.Duration
	}{
		{*tgPollTimeout, "TELEGRAM_POLL_TIMEOUT", "60s", &cfg.Telegram.PollTimeout},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*settleDelay, "CATALOG_SETTLE_DELAY", "500ms", &cfg.Catalog.SettleDelay},
		{*sessionTTL, "DIALOG_SESSION_TTL", "24h", &cfg.Dialog.SessionTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Dialog.MessagesFile != "" {
		msgs, err := LoadMessages(cfg.Dialog.MessagesFile, cfg.Dialog.Messages)
		if err != nil {
			return nil, err
		}
		cfg.Dialog.Messages = msgs
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	v := validation.New()
	for _, section := range []any{c.App, c.Logger, c.Data, c.Telegram, c.Server, c.Dialog, c.Catalog} {
		if err := v.Validate(section); err != nil {
			return err
		}
	}
	return nil
}

// expandPaths resolves BasePath and derives the database and catalog paths from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, ".songrequest"))
	if err != nil {
		return err
	}
	c.Data.BasePath = base

	if c.Data.DatabasePath, err = expandPath(c.Data.DatabasePath, filepath.Join(base, "songrequest.db")); err != nil {
		return err
	}
	if c.Data.CatalogFile, err = expandPath(c.Data.CatalogFile, filepath.Join(base, "tracklist.txt")); err != nil {
		return err
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
