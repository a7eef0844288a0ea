package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type RedisConfig struct {
	URI string `mapstructure:"uri"`
}

// StorageConfig selects where progress blobs live
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	Key        string `mapstructure:"key"`
	SQLitePath string `mapstructure:"sqlite_path"`
	FilePath   string `mapstructure:"file_path"`
}

// SpeechConfig is optional; an empty BaseURL turns word playback off
type SpeechConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Voice   string `mapstructure:"voice"`
}

type AppConfig struct {
	LocalesDir      string `mapstructure:"locales_dir"`
	CatalogPath     string `mapstructure:"catalog_path"`
	DefaultLanguage string `mapstructure:"default_language"`
	WordsPerPage    int    `mapstructure:"words_per_page"`
	// SessionIdle is how long a learner's cached session outlives their last update
	SessionIdle time.Duration `mapstructure:"session_idle"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)

	v.SetDefault("storage.backend", BackendRedis)
	v.SetDefault("storage.key", "kid-reader-progress")
	v.SetDefault("storage.sqlite_path", "data/progress.db")
	v.SetDefault("storage.file_path", "data/progress")
	v.SetDefault("speech.base_url", "")
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.voice", "")
	v.SetDefault("app.locales_dir", "locales")
	v.SetDefault("app.catalog_path", "")
	v.SetDefault("app.default_language", "en")
	v.SetDefault("app.words_per_page", 8)
	v.SetDefault("app.session_idle", "30m")
	v.SetDefault("log.mode", "dev")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Environment variable configuration
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}
	if cfg.App.WordsPerPage <= 0 {
		return nil, fmt.Errorf("app words_per_page must be positive, got %d", cfg.App.WordsPerPage)
	}
	if cfg.App.SessionIdle <= 0 {
		return nil, fmt.Errorf("app session_idle must be positive, got %s", cfg.App.SessionIdle)
	}

	return &cfg, nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendRedis:
		if c.Redis.URI == "" {
			return fmt.Errorf("redis URI is required for the redis storage backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage sqlite_path is required")
		}
	case BackendFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage file_path is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ValidateBot checks the settings only the Telegram bot needs
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Redis.URI == "" {
		return fmt.Errorf("redis URI is required")
	}
	return nil
}
