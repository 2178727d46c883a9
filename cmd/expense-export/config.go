package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the CLI configuration
type Config struct {
	Backend         string        `mapstructure:"backend"`
	DataDir         string        `mapstructure:"data_dir"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	DatabaseURL     string        `mapstructure:"database_url"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	LogLevel        string        `mapstructure:"log_level"`
	DefaultCurrency string        `mapstructure:"default_currency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FlushRows       int           `mapstructure:"flush_rows"`
	MaxRows         int           `mapstructure:"max_rows"`
	RepeatHeader    bool          `mapstructure:"repeat_header"`
}

// envPrefix scopes environment overrides, e.g. EXPENSES_BACKEND.
const envPrefix = "EXPENSES"

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "sqlite")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("sqlite_path", "./data/expenses.db")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("default_currency", "USD")
	v.SetDefault("timeout", 5*time.Minute)
	v.SetDefault("flush_rows", 100)
	v.SetDefault("max_rows", 0)
	v.SetDefault("repeat_header", false)
}

// LoadConfig loads configuration from defaults, EXPENSES_* environment
// variables, an optional TOML file and any flags bound to v, in increasing
// order of precedence.
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
