package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/charset"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Rakuten   RakutenConfig
	Pipeline  PipelineConfig
	Catalog   CatalogConfig
	Export    ExportConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// RakutenConfig holds Rakuten Ichiba API configuration
type RakutenConfig struct {
	ApplicationID string        `mapstructure:"application_id"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// RequestsPerSecond bounds outbound searches; 0 disables the limit
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PipelineConfig is the search profile plus run behaviour
type PipelineConfig struct {
	ExcludeDefault string `mapstructure:"exclude_default"`
	// MatchMode is "and" or "or"
	MatchMode      string `mapstructure:"match_mode"`
	PriceBounds    bool   `mapstructure:"price_bounds"`
	ResultLimitMax int    `mapstructure:"result_limit_max"`
	PartnerShop    string `mapstructure:"partner_shop"`
	Concurrency    int    `mapstructure:"concurrency"`
	Debug          bool   `mapstructure:"debug"`
}

// CatalogConfig holds default input file encodings
type CatalogConfig struct {
	MasterEncoding string `mapstructure:"master_encoding"`
	GoodsEncoding  string `mapstructure:"goods_encoding"`
}

// ExportConfig holds output file settings
type ExportConfig struct {
	RakutenEncoding string `mapstructure:"rakuten_encoding"`
	YahooEncoding   string `mapstructure:"yahoo_encoding"`
	InhouseEncoding string `mapstructure:"inhouse_encoding"`
	ResultEncoding  string `mapstructure:"result_encoding"`
	LegacyFormulas  bool   `mapstructure:"legacy_formulas"`
	Timezone        string `mapstructure:"timezone"`
}

// StoreConfig holds run store configuration
type StoreConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricecheck/")

	// Environment variable settings
	v.SetEnvPrefix("PRICECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default so
// that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8501"})
	v.SetDefault("server.max_upload_bytes", 32<<20)

	// Rakuten defaults
	v.SetDefault("rakuten.application_id", "")
	v.SetDefault("rakuten.base_url", "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20170706")
	v.SetDefault("rakuten.timeout", "30s")
	v.SetDefault("rakuten.requests_per_second", 1.0)
	v.SetDefault("rakuten.burst", 1)

	// Pipeline defaults
	v.SetDefault("pipeline.exclude_default", "部品 中古")
	v.SetDefault("pipeline.match_mode", "and")
	v.SetDefault("pipeline.price_bounds", true)
	v.SetDefault("pipeline.result_limit_max", 30)
	v.SetDefault("pipeline.partner_shop", "FRESH ROASTER珈琲問屋 楽天市場店")
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.debug", false)

	// Catalog defaults
	v.SetDefault("catalog.master_encoding", charset.UTF8)
	v.SetDefault("catalog.goods_encoding", charset.ShiftJIS)

	// Export defaults
	v.SetDefault("export.rakuten_encoding", charset.ShiftJIS)
	v.SetDefault("export.yahoo_encoding", charset.ShiftJIS)
	v.SetDefault("export.inhouse_encoding", charset.UTF8BOM)
	v.SetDefault("export.result_encoding", charset.UTF8BOM)
	v.SetDefault("export.legacy_formulas", false)
	v.SetDefault("export.timezone", "Asia/Tokyo")

	// Store defaults
	v.SetDefault("store.ttl", "1h")
	v.SetDefault("store.cleanup_interval", "5m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Rakuten.ApplicationID == "" {
		return fmt.Errorf("rakuten application id is required (set PRICECHECK_RAKUTEN_APPLICATION_ID)")
	}

	if _, err := config.Pipeline.Mode(); err != nil {
		return err
	}

	if config.Pipeline.ResultLimitMax < 1 || config.Pipeline.ResultLimitMax > domain.MaxResultLimit {
		return fmt.Errorf("pipeline result limit must be between 1 and %d, got: %d",
			domain.MaxResultLimit, config.Pipeline.ResultLimitMax)
	}

	if config.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1, got: %d", config.Pipeline.Concurrency)
	}

	for _, name := range []string{
		config.Catalog.MasterEncoding,
		config.Catalog.GoodsEncoding,
		config.Export.RakutenEncoding,
		config.Export.YahooEncoding,
		config.Export.InhouseEncoding,
		config.Export.ResultEncoding,
	} {
		if _, err := charset.Normalize(name); err != nil {
			return err
		}
	}

	if config.Log.Format != "console" && config.Log.Format != "json" {
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", config.Log.Format)
	}

	return nil
}

// Mode maps the configured match mode to its search flag
func (p PipelineConfig) Mode() (domain.MatchMode, error) {
	switch strings.ToLower(p.MatchMode) {
	case "and", "":
		return domain.MatchAND, nil
	case "or":
		return domain.MatchOR, nil
	default:
		return domain.MatchAND, fmt.Errorf("match mode must be 'and' or 'or', got: %s", p.MatchMode)
	}
}

// Location returns the export timezone, falling back to a fixed JST offset
// when the zone database is unavailable
func (e ExportConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(e.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("JST", 9*60*60)
}
