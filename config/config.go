// Package config loads the poscalc configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/positions"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "poscalc.toml"

// Config holds all configuration for poscalc
type Config struct {
	MainCurrency            string        `toml:"main_currency"` // Reporting currency, empty to report in each security's currency
	ExcludeDividendTaxCost  bool          `toml:"exclude_dividend_tax_cost"`
	SimulateAccruedInterest bool          `toml:"simulate_accrued_interest"`
	RecalculateLots         bool          `toml:"recalculate_lots"`
	Logging                 LoggingConfig `toml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns the configuration used when no file sets a value.
func NewDefaultConfig() *Config {
	return &Config{
		SimulateAccruedInterest: true,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from files with environment overrides.
//
// Missing files are skipped, later files override earlier ones. A .env file
// in the working directory is loaded into the environment first.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue // Skip missing files
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	config.MainCurrency = strings.ToUpper(config.MainCurrency)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	if cur := os.Getenv("POSCALC_MAIN_CURRENCY"); cur != "" {
		config.MainCurrency = cur
	}
	if level := os.Getenv("POSCALC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if v := os.Getenv("POSCALC_EXCLUDE_DIVIDEND_TAX_COST"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid POSCALC_EXCLUDE_DIVIDEND_TAX_COST %q: %w", v, err)
		}
		config.ExcludeDividendTaxCost = b
	}
	return nil
}

// ServiceOptions returns the calculation options of the configuration.
func (c *Config) ServiceOptions(log zerolog.Logger) []positions.Option {
	opts := []positions.Option{
		positions.WithLogger(log),
		positions.WithDividendTaxCostExcluded(c.ExcludeDividendTaxCost),
		positions.WithAccruedInterestSimulation(c.SimulateAccruedInterest),
		positions.WithLotRecalculation(c.RecalculateLots),
	}
	if c.MainCurrency != "" {
		opts = append(opts, positions.WithMainCurrency(c.MainCurrency))
	}
	return opts
}
