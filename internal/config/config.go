package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string         `mapstructure:"APP_NAME"`
	AppVersion string         `mapstructure:"APP_VERSION"`
	LogLevel   string         `mapstructure:"LOG_LEVEL"`
	Database   DatabaseConfig `mapstructure:"DATABASE"`
	Chat       ChatConfig     `mapstructure:"CHAT"`
	Metrics    MetricsConfig  `mapstructure:"METRICS"`
}

// DatabaseConfig holds configuration for the local message database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// ChatConfig holds tuning knobs for the chat directory.
type ChatConfig struct {
	// NoticeDelay is the coalescing window of the debounced unread-count
	// recomputation.
	NoticeDelay time.Duration `mapstructure:"NOTICE_DELAY"`
	// MessagePageLimit caps the default "load recent window" message query.
	MessagePageLimit int `mapstructure:"MESSAGE_PAGE_LIMIT"`
	// RecentWindow bounds how old a quiet, unstarred chat may be and still
	// count as recent.
	RecentWindow time.Duration `mapstructure:"RECENT_WINDOW"`
}

// MetricsConfig holds configuration for the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"ENABLED"`
	Addr    string `mapstructure:"ADDR"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "xuanxuan")
	v.SetDefault("APP_VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "info")

	// Database Defaults (local PostgreSQL message store)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "xuanxuan_client")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	// Chat Defaults
	v.SetDefault("CHAT.NOTICE_DELAY", 100*time.Millisecond)
	v.SetDefault("CHAT.MESSAGE_PAGE_LIMIT", 100)
	v.SetDefault("CHAT.RECENT_WINDOW", 7*24*time.Hour)

	// Metrics Defaults
	v.SetDefault("METRICS.ENABLED", false)
	v.SetDefault("METRICS.ADDR", "127.0.0.1:9301")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// Config file not found; defaults still apply.
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
