// Package config provides configuration management for the trading dashboard engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Risk    RiskConfig    `mapstructure:"risk"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	UI      UIConfig      `mapstructure:"ui"`
}

// RiskConfig holds risk and sizing defaults.
type RiskConfig struct {
	AccountSize     float64 `mapstructure:"account_size"`
	RiskPercent     float64 `mapstructure:"risk_percent"`
	MinRiskReward   float64 `mapstructure:"min_risk_reward"`
	MinPercentage   float64 `mapstructure:"min_percentage"`
	MaxPercentage   float64 `mapstructure:"max_percentage"`
	KellyMultiplier float64 `mapstructure:"kelly_multiplier"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradedesk"
	}
	return filepath.Join(home, ".config", "tradedesk")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(configDir, "tradedesk.db")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("risk.account_size", 25000.0)
	v.SetDefault("risk.risk_percent", 1.0)
	v.SetDefault("risk.min_risk_reward", 2.0)
	v.SetDefault("risk.min_percentage", validation.MinPercentage)
	v.SetDefault("risk.max_percentage", validation.MaxPercentage)
	v.SetDefault("risk.kelly_multiplier", 0.5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, write the template and continue with defaults
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEDESK_ACCOUNT_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.AccountSize = f
		}
	}
	if v := os.Getenv("TRADEDESK_RISK_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.RiskPercent = f
		}
	}
	if v := os.Getenv("TRADEDESK_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("TRADEDESK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	r := c.Risk
	if r.AccountSize < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "account_size must be non-negative")
	}
	if r.RiskPercent <= 0 || r.RiskPercent > 100 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "risk_percent must be in (0, 100]")
	}
	if r.MinRiskReward < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "min_risk_reward must be non-negative")
	}
	if r.MinPercentage < validation.MinPercentage {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "min_percentage must be at least -100")
	}
	if r.MinPercentage > r.MaxPercentage {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "min_percentage must not exceed max_percentage")
	}
	if r.KellyMultiplier < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "kelly_multiplier must be non-negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// PercentBounds returns the configured percentage range.
func (c *Config) PercentBounds() validation.PercentBounds {
	return validation.PercentBounds{Min: c.Risk.MinPercentage, Max: c.Risk.MaxPercentage}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Storage.DBPath = filepath.Join(DefaultConfigDir(), "tradedesk.db")
	return cfg
}
