package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat search backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen       string   `mapstructure:"listen"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ProvidersConfig groups external API credentials and tuning.
type ProvidersConfig struct {
	Search SearchProviderConfig `mapstructure:"search"`
	OpenAI OpenAIConfig         `mapstructure:"openai"`
}

// SearchProviderConfig selects and configures the web search provider.
type SearchProviderConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Endpoint    string `mapstructure:"endpoint"`
	SearchDepth string `mapstructure:"search_depth"`
}

func (s SearchProviderConfig) Validate() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return errors.New("providers.search.api_key is required")
	}
	return nil
}

// OpenAIConfig configures the summarization model.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (o OpenAIConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return errors.New("providers.openai.api_key is required")
	}
	return nil
}

// StorageConfig contains database connection settings.
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig configures the optional event stream mirror. Leaving Host
// empty disables mirroring.
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// Addr returns host:port, or "" when redis is not configured.
func (r RedisConfig) Addr() string {
	if strings.TrimSpace(r.Host) == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// PostgresConfig configures terminal-result persistence. Leaving both URL
// and Host empty disables it.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Enabled reports whether persistence is configured at all.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN builds the connection string from the configured parts.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if strings.TrimSpace(p.Host) == "" || strings.TrimSpace(p.DBName) == "" {
		return "", errors.New("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LoadConfig loads config from file (json) with CHATSEARCH_* env overrides.
// A missing config file is fine; missing credentials surface later through
// the per-section Validate methods.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.listen", ":10002")
	viper.SetDefault("server.allow_origins", []string{"*"})
	viper.SetDefault("providers.search.provider", "tavily")
	viper.SetDefault("providers.search.search_depth", "basic")
	viper.SetDefault("providers.openai.model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.max_tokens", 1024)
	viper.SetDefault("providers.openai.timeout", time.Minute)
	viper.SetDefault("storage.redis.stream_max_len", 10000)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("CHATSEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}
