package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"RRN_ENV"`
	HTTPAddr string `mapstructure:"RRN_HTTP_ADDR"`

	Redis    RedisConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

// RedisConfig provides server-side defaults for executions that do not carry
// their own credential. Requests may still override every field.
type RedisConfig struct {
	Host     string `mapstructure:"RRN_REDIS_HOST"`
	Port     int    `mapstructure:"RRN_REDIS_PORT"`
	Database int    `mapstructure:"RRN_REDIS_DB"`
	User     string `mapstructure:"RRN_REDIS_USER"`
	Password string `mapstructure:"RRN_REDIS_PASSWORD"`
	SSL      bool   `mapstructure:"RRN_REDIS_SSL"`

	DialTimeout time.Duration `mapstructure:"RRN_REDIS_DIAL_TIMEOUT"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"RRN_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"RRN_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("RRN_ENV", "dev")
	viper.SetDefault("RRN_HTTP_ADDR", ":8080")
	viper.SetDefault("RRN_REDIS_HOST", "127.0.0.1")
	viper.SetDefault("RRN_REDIS_PORT", 6379)
	viper.SetDefault("RRN_REDIS_DB", 0)
	viper.SetDefault("RRN_REDIS_DIAL_TIMEOUT", "5s")
	viper.SetDefault("RRN_RATE_LIMIT_RPM", 120)
	viper.SetDefault("RRN_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Handle array parsing for comma-separated values
	if origins := viper.GetString("RRN_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("RRN_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Redis.Host == "" {
		return fmt.Errorf("RRN_REDIS_HOST is required")
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid RRN_REDIS_PORT %d", c.Redis.Port)
	}
	if c.Redis.Database < 0 {
		return fmt.Errorf("invalid RRN_REDIS_DB %d", c.Redis.Database)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
