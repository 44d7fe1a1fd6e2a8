package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data: DataConfig{
			BasePath:     "/data",
			DatabasePath: "/data/songrequest.db",
			CatalogFile:  "/data/tracklist.txt",
		},
		Telegram: TelegramConfig{
			Enabled: true,
			Token:   "123:abc",
			Channel: "@requests",
			Workers: 4,
		},
		Server: ServerConfig{Enabled: true, Port: "8080"},
		Dialog: DialogConfig{RateLimit: 2, RateBurst: 5, SessionTTL: time.Hour, Messages: DefaultMessages()},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_TelegramRequiredOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	cfg.Telegram.Channel = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")

	cfg.Telegram.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Channel = "not a channel"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHANNEL")
}

func TestValidate_DialogLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Dialog.RateLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Dialog.RateBurst = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TELEGRAM_ENABLED", "false")

	cfg, err := LoadConfig([]string{"--data-path", dir, "--env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, dir, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(dir, "songrequest.db"), cfg.Data.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "tracklist.txt"), cfg.Data.CatalogFile)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Telegram.PollTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.SettleDelay)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 4, cfg.Telegram.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Dialog.SessionTTL)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, DefaultMessages(), cfg.Dialog.Messages)
}

func TestLoadConfig_CORSOrigins(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TELEGRAM_ENABLED", "false")

	cfg, err := LoadConfig([]string{
		"--data-path", dir,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--cors-origins", "http://localhost:5173, https://dash.example.com,",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "https://dash.example.com"}, cfg.Server.AllowedOrigins)

	_, err = LoadConfig([]string{
		"--data-path", dir,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--cors-origins", "not a url",
	})
	assert.Error(t, err)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# comment\nSERVER_PORT=9000\nLOG_LEVEL=\"warn\"\nTELEGRAM_ENABLED=false\n"), 0o600))

	t.Setenv("LOG_LEVEL", "error")
	// Registered with t.Setenv so the .env loader's os.Setenv calls are restored.
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TELEGRAM_ENABLED", "")

	cfg, err := LoadConfig([]string{"--data-path", dir, "--env-file", envFile, "--port", "7000"})
	require.NoError(t, err)

	// Flag beats .env, env beats .env.
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logger.Level)
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TELEGRAM_ENABLED", "false")

	_, err := LoadConfig([]string{"--data-path", dir, "--read-timeout", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_READ_TIMEOUT")
}

func TestLoadMessages_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("restart: \"В начало\"\nback: \"Назад\"\n"), 0o600))

	msgs, err := LoadMessages(path, DefaultMessages())
	require.NoError(t, err)

	assert.Equal(t, "В начало", msgs.Restart)
	assert.Equal(t, "Назад", msgs.Back)
	assert.Equal(t, "choose author", msgs.ChooseAuthor)
}

func TestLoadMessages_DuplicateButtons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("restart: back\n"), 0o600))

	_, err := LoadMessages(path, DefaultMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share the label")
}

func TestLoadMessages_ShippedRussianFile(t *testing.T) {
	msgs, err := LoadMessages(filepath.Join("..", "..", "configs", "messages.ru.yaml"), DefaultMessages())
	require.NoError(t, err)

	assert.Equal(t, "В начало", msgs.Restart)
	assert.Equal(t, "Выбрать автора", msgs.ChooseAuthor)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/music", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "music"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)
}
