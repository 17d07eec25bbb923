package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the obsquery service
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Search    SearchConfig    `mapstructure:"search"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Query     QueryConfig     `mapstructure:"query"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustProxy enables X-Forwarded-For handling for requests arriving from TrustedProxyNetworks
	TrustProxy           bool     `mapstructure:"trust_proxy"`
	TrustedProxyNetworks []string `mapstructure:"trusted_proxy_networks"`
	RequestTimeout       int      `mapstructure:"request_timeout"` // seconds
	RateLimit            struct {
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		Burst             int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// Timeout returns the per-request deadline applied to queries.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// SearchConfig selects and configures the search backend
type SearchConfig struct {
	Backend       string              `mapstructure:"backend"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Bleve         BleveConfig         `mapstructure:"bleve"`
	Breaker       BreakerConfig       `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the search
// backend. MaxFailures of 0 disables it.
type BreakerConfig struct {
	MaxFailures         uint32 `mapstructure:"max_failures"`
	ResetTimeout        int    `mapstructure:"reset_timeout"` // seconds
	MaxHalfOpenRequests uint32 `mapstructure:"max_half_open_requests"`
}

// ResetAfter is how long an open breaker waits before probing the backend.
func (c BreakerConfig) ResetAfter() time.Duration {
	return time.Duration(c.ResetTimeout) * time.Second
}

// ElasticsearchConfig configures the Elasticsearch search backend
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	// Refresh is passed to bulk writes ("true", "false" or "wait_for")
	Refresh string `mapstructure:"refresh"`
}

// BleveConfig configures the embedded bleve search backend. An empty path
// keeps the index in memory.
type BleveConfig struct {
	Path string `mapstructure:"path"`
}

// DocumentsConfig selects and configures the authoritative document store
type DocumentsConfig struct {
	Backend string        `mapstructure:"backend"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
}

// MongoDBConfig configures the MongoDB document store
type MongoDBConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Collection  string `mapstructure:"collection"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	Timeout     int    `mapstructure:"timeout"` // seconds
}

// SQLiteConfig configures the SQLite document store
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// QueryConfig holds request defaults and limits
type QueryConfig struct {
	DefaultWindowDays int `mapstructure:"default_window_days"`
	DefaultPerPage    int `mapstructure:"default_per_page"`
	MaxPerPage        int `mapstructure:"max_per_page"`
}

// DefaultWindow is how far back import_time_min reaches when not given.
func (c QueryConfig) DefaultWindow() time.Duration {
	return time.Duration(c.DefaultWindowDays) * 24 * time.Hour
}

// LoggingConfig configures the zap logger and optional file rotation
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults() {
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.trusted_proxy_networks", []string{"127.0.0.1/32", "::1/128"})
	viper.SetDefault("api.request_timeout", 30)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("search.backend", "elasticsearch")
	viper.SetDefault("search.elasticsearch.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("search.elasticsearch.index", "events")
	viper.SetDefault("search.elasticsearch.refresh", "false")
	viper.SetDefault("search.bleve.path", "./data/events.bleve")
	viper.SetDefault("search.breaker.max_failures", 5)
	viper.SetDefault("search.breaker.reset_timeout", 30)
	viper.SetDefault("search.breaker.max_half_open_requests", 1)

	viper.SetDefault("documents.backend", "mongodb")
	viper.SetDefault("documents.mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("documents.mongodb.database", "obsquery")
	viper.SetDefault("documents.mongodb.collection", "events")
	viper.SetDefault("documents.mongodb.max_pool_size", 10)
	viper.SetDefault("documents.mongodb.timeout", 10)
	viper.SetDefault("documents.sqlite.path", "./data/events.db")

	viper.SetDefault("query.default_window_days", 30)
	viper.SetDefault("query.default_per_page", 50)
	viper.SetDefault("query.max_per_page", 1000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.max_size_mb", 100)
	viper.SetDefault("logging.max_backups", 5)
	viper.SetDefault("logging.max_age_days", 28)
	viper.SetDefault("logging.compress", true)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("OBSQUERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Shorter names for the settings most often overridden in deployments
	_ = viper.BindEnv("search.backend", "OBSQUERY_SEARCH_BACKEND")
	_ = viper.BindEnv("documents.backend", "OBSQUERY_DOCUMENTS_BACKEND")
	_ = viper.BindEnv("search.elasticsearch.addresses", "OBSQUERY_ES_ADDRESSES")
	_ = viper.BindEnv("documents.mongodb.uri", "OBSQUERY_MONGODB_URI")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d (must be 1-65535)", config.API.Port)
	}
	if config.API.RequestTimeout <= 0 {
		return fmt.Errorf("api request timeout must be positive")
	}
	if config.API.RateLimit.RequestsPerSecond <= 0 || config.API.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit requests_per_second and burst must be positive")
	}
	if config.API.TrustProxy {
		for _, network := range config.API.TrustedProxyNetworks {
			if !isValidIPOrCIDR(network) {
				return fmt.Errorf("invalid trusted proxy network: %s", network)
			}
		}
	}

	switch config.Search.Backend {
	case "elasticsearch":
		if len(config.Search.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("elasticsearch addresses cannot be empty")
		}
		for _, addr := range config.Search.Elasticsearch.Addresses {
			parsed, err := url.Parse(addr)
			if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return fmt.Errorf("invalid elasticsearch address: %s", addr)
			}
		}
		if config.Search.Elasticsearch.Index == "" {
			return fmt.Errorf("elasticsearch index cannot be empty")
		}
		switch config.Search.Elasticsearch.Refresh {
		case "", "true", "false", "wait_for":
		default:
			return fmt.Errorf("invalid elasticsearch refresh: %s (must be true, false or wait_for)", config.Search.Elasticsearch.Refresh)
		}
	case "bleve":
	default:
		return fmt.Errorf("invalid search backend: %q (must be elasticsearch or bleve)", config.Search.Backend)
	}

	if breaker := config.Search.Breaker; breaker.MaxFailures > 0 {
		if breaker.ResetTimeout <= 0 {
			return fmt.Errorf("search breaker reset timeout must be positive")
		}
		if breaker.MaxHalfOpenRequests == 0 {
			return fmt.Errorf("search breaker max half-open requests must be positive")
		}
	}

	switch config.Documents.Backend {
	case "mongodb":
		mongo := config.Documents.MongoDB
		if !strings.HasPrefix(mongo.URI, "mongodb://") && !strings.HasPrefix(mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
		}
		parsed, err := url.Parse(mongo.URI)
		if err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("invalid MongoDB URI: missing host")
		}
		if mongo.Database == "" {
			return fmt.Errorf("MongoDB database cannot be empty")
		}
		if mongo.Collection == "" {
			return fmt.Errorf("MongoDB collection cannot be empty")
		}
	case "sqlite":
		if config.Documents.SQLite.Path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("invalid documents backend: %q (must be mongodb or sqlite)", config.Documents.Backend)
	}

	if config.Query.DefaultWindowDays <= 0 {
		return fmt.Errorf("query default window must be positive")
	}
	if config.Query.MaxPerPage <= 0 {
		return fmt.Errorf("query max per page must be positive")
	}
	if config.Query.DefaultPerPage <= 0 || config.Query.DefaultPerPage > config.Query.MaxPerPage {
		return fmt.Errorf("invalid query default per page: %d (must be 1-%d)", config.Query.DefaultPerPage, config.Query.MaxPerPage)
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}

	return nil
}

func isValidIPOrCIDR(ipStr string) bool {
	if strings.Contains(ipStr, "/") {
		_, _, err := net.ParseCIDR(ipStr)
		return err == nil
	}
	return net.ParseIP(ipStr) != nil
}
