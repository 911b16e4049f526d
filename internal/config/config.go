package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Keeper   KeeperConfig   `mapstructure:"keeper"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Health   HealthConfig   `mapstructure:"health"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"DATABASE_URL"`
	Host     string `mapstructure:"DATABASE_HOST"`
	Port     string `mapstructure:"DATABASE_PORT"`
	Name     string `mapstructure:"DATABASE_NAME"`
	User     string `mapstructure:"DATABASE_USER"`
	Password string `mapstructure:"DATABASE_PASSWORD"`
}

type RedisConfig struct {
	URL      string `mapstructure:"REDIS_URL"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
}

type KeeperConfig struct {
	Interval string `mapstructure:"KEEPER_INTERVAL"`
	Timezone string `mapstructure:"KEEPER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// ProtocolConfig carries the lending parameters: the protocol fee schedule,
// the reputation score bounds, and the score-to-LTV curve endpoints.
type ProtocolConfig struct {
	FeeBps             uint64 `mapstructure:"PROTOCOL_FEE_BPS"`
	BaseScore          uint64 `mapstructure:"REPUTATION_BASE_SCORE"`
	FloorScore         uint64 `mapstructure:"REPUTATION_FLOOR_SCORE"`
	LowScoreThreshold  uint64 `mapstructure:"LTV_LOW_SCORE"`
	HighScoreThreshold uint64 `mapstructure:"LTV_HIGH_SCORE"`
	LowLtvBps          uint64 `mapstructure:"LTV_LOW_BPS"`
	HighLtvBps         uint64 `mapstructure:"LTV_HIGH_BPS"`
	OfferMaxAgeDays    uint64 `mapstructure:"OFFER_MAX_AGE_DAYS"`
	NativePriceUsd     string `mapstructure:"NATIVE_PRICE_USD"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("PROTOCOL_FEE_BPS", 200)
	viper.SetDefault("REPUTATION_BASE_SCORE", 100)
	viper.SetDefault("REPUTATION_FLOOR_SCORE", 50)
	viper.SetDefault("LTV_LOW_SCORE", 100)
	viper.SetDefault("LTV_HIGH_SCORE", 120)
	viper.SetDefault("LTV_LOW_BPS", 2000)
	viper.SetDefault("LTV_HIGH_BPS", 8000)
	viper.SetDefault("OFFER_MAX_AGE_DAYS", 30)
	viper.SetDefault("NATIVE_PRICE_USD", "100000000")
	viper.SetDefault("KEEPER_INTERVAL", "1m")
	viper.SetDefault("KEEPER_TIMEZONE", "UTC")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Protocol.FeeBps >= 10_000 {
		return fmt.Errorf("PROTOCOL_FEE_BPS must be below 10000")
	}

	if c.Protocol.FloorScore > c.Protocol.BaseScore {
		return fmt.Errorf("REPUTATION_FLOOR_SCORE must not exceed REPUTATION_BASE_SCORE")
	}

	if c.Protocol.LowScoreThreshold >= c.Protocol.HighScoreThreshold {
		return fmt.Errorf("LTV_LOW_SCORE must be below LTV_HIGH_SCORE")
	}

	if c.Protocol.LowLtvBps > c.Protocol.HighLtvBps {
		return fmt.Errorf("LTV_LOW_BPS must not exceed LTV_HIGH_BPS")
	}

	if c.Protocol.HighLtvBps > 10_000 {
		return fmt.Errorf("LTV_HIGH_BPS must not exceed 10000")
	}

	if c.Protocol.OfferMaxAgeDays == 0 {
		return fmt.Errorf("OFFER_MAX_AGE_DAYS must be greater than 0")
	}

	// Validate the native asset bootstrap price
	if _, ok := new(big.Int).SetString(c.Protocol.NativePriceUsd, 10); !ok {
		return fmt.Errorf("NATIVE_PRICE_USD must be a valid integer")
	}

	// Validate keeper interval
	if _, err := time.ParseDuration(c.Keeper.Interval); err != nil {
		return fmt.Errorf("KEEPER_INTERVAL must be a valid duration: %w", err)
	}

	// Validate health check timeout
	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		d.Host, d.Port, d.Name, d.User, d.Password)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetNativePriceUsd returns the bootstrap price for the native asset feed
func (c *Config) GetNativePriceUsd() *big.Int {
	price, _ := new(big.Int).SetString(c.Protocol.NativePriceUsd, 10)
	return price
}

// GetKeeperInterval returns the keeper sweep interval as duration
func (c *Config) GetKeeperInterval() time.Duration {
	duration, _ := time.ParseDuration(c.Keeper.Interval)
	return duration
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
