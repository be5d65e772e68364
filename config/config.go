// Package config loads the trader configuration from YAML. Malformed or
// missing settings resolve to documented defaults; startup never fails on a
// bad config file, it degrades and reports.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ufotrader/ledger"
	"ufotrader/reinforce"
	"ufotrader/risk"
	"ufotrader/session"
)

var validate = validator.New()

// Config is the complete trader configuration. Component sections reuse the
// owning package's config type; each component constructor independently
// falls back to defaults for zero or out-of-range values, so a partially
// filled Config is always safe to hand out.
type Config struct {
	Account   AccountConfig    `yaml:"account"`
	Basket    BasketConfig     `yaml:"basket"`
	Strength  StrengthConfig   `yaml:"strength"`
	Trader    TraderConfig     `yaml:"trader"`
	Journal   JournalConfig    `yaml:"journal"`
	Logging   LoggingConfig    `yaml:"logging"`
	Session   session.Config   `yaml:"session"`
	Risk      risk.Config      `yaml:"risk"`
	Rules     ledger.Rules     `yaml:"close_rules"`
	Reinforce reinforce.Config `yaml:"reinforce"`
}

// AccountConfig holds account initialization parameters.
type AccountConfig struct {
	Currency string  `yaml:"currency" default:"USD" validate:"len=3"`
	Balance  float64 `yaml:"balance" default:"10000" validate:"gt=0"`
}

// BasketConfig names the tradable universe.
type BasketConfig struct {
	Currencies []string `yaml:"currencies" validate:"omitempty,dive,len=3"`
	Pairs      []string `yaml:"pairs"`
}

// StrengthConfig holds the analysis tunables.
type StrengthConfig struct {
	Window             int     `yaml:"window" default:"20" validate:"gt=0"`
	ReversionThreshold float64 `yaml:"reversion_threshold" default:"2.0" validate:"gt=0"`
	BarCount           int     `yaml:"bar_count" default:"100" validate:"gt=0"`
}

// TraderConfig holds the cycle cadence.
type TraderConfig struct {
	MainInterval       time.Duration `yaml:"main_interval" default:"40m" validate:"gt=0"`
	MonitoringInterval time.Duration `yaml:"monitoring_interval" default:"5m" validate:"gt=0"`
}

// JournalConfig selects the history sink.
type JournalConfig struct {
	Type       string `yaml:"type" default:"none" validate:"oneof=none csv sqlite"`
	TradesFile string `yaml:"trades_file" default:"trades.csv"`
	EquityFile string `yaml:"equity_file" default:"equity.csv"`
	DBPath     string `yaml:"db_path" default:"trader.db"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Default returns the full documented default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	cfg.Session = session.Default()
	cfg.Risk = risk.DefaultConfig()
	cfg.Rules = ledger.DefaultRules()
	cfg.Reinforce = reinforce.DefaultConfig()
	return cfg
}

// Load reads a YAML config file over the defaults. Any failure, from a
// missing file to a malformed numeric, returns the default configuration
// together with the error; callers log the degradation and continue.
func Load(path string) (*Config, error) {
	// Pick up a .env file if one exists; environment wins over YAML.
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		applyEnv(cfg)
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		applyEnv(cfg)
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		cfg = Default()
		applyEnv(cfg)
		return cfg, fmt.Errorf("apply defaults: %w", err)
	}
	applyEnv(cfg)
	if err := validate.Struct(cfg); err != nil {
		cfg = Default()
		applyEnv(cfg)
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays a handful of deployment-specific settings from the
// environment. Secrets and host paths belong in .env, not in a config file
// that gets committed.
func applyEnv(cfg *Config) {
	if v := os.Getenv("UFO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("UFO_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("UFO_JOURNAL_DB"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("UFO_BALANCE"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil && b > 0 {
			cfg.Account.Balance = b
		}
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
