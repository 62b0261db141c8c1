package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents a complete simulation run.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig contains portfolio initialization parameters.
type AccountConfig struct {
	ID      string  `json:"id" yaml:"id"`
	Balance float64 `json:"balance" yaml:"balance"`
}

// RiskConfig contains the portfolio risk limits.
type RiskConfig struct {
	MaxNotionalPct float64 `json:"max_notional_pct" yaml:"max_notional_pct"`
	DefaultRiskPct float64 `json:"default_risk_pct" yaml:"default_risk_pct"`
}

// StrategyConfig describes the single order a run opens before replaying
// price steps.
type StrategyConfig struct {
	Pair        string  `json:"pair" yaml:"pair"`
	Side        string  `json:"side" yaml:"side"`
	RiskPercent float64 `json:"risk_percent" yaml:"risk_percent"`
	EntryPrice  float64 `json:"entry_price" yaml:"entry_price"`
	StopLoss    float64 `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit  float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
}

// SimulationConfig contains the price updates to replay, in order.
type SimulationConfig struct {
	PriceSteps []PriceStep `json:"price_steps,omitempty" yaml:"price_steps,omitempty"`
}

// PriceStep is one price update for a pair. DelayMS is how many
// milliseconds to wait before applying the step.
type PriceStep struct {
	Pair    string  `json:"pair" yaml:"pair"`
	Price   float64 `json:"price" yaml:"price"`
	DelayMS int     `json:"delay_ms,omitempty" yaml:"delay_ms,omitempty"`
}

// JournalConfig selects the journal backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by
// extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Risk.MaxNotionalPct <= 0 || c.Risk.MaxNotionalPct > 1 {
		return fmt.Errorf("risk.max_notional_pct must be in (0, 1]")
	}
	if c.Risk.DefaultRiskPct <= 0 || c.Risk.DefaultRiskPct > 100 {
		return fmt.Errorf("risk.default_risk_pct must be in (0, 100]")
	}
	if c.Strategy.Pair == "" {
		return fmt.Errorf("strategy.pair is required")
	}
	if c.Strategy.Side != "long" && c.Strategy.Side != "short" {
		return fmt.Errorf("strategy.side must be 'long' or 'short'")
	}
	if c.Strategy.RiskPercent <= 0 || c.Strategy.RiskPercent > 100 {
		return fmt.Errorf("strategy.risk_percent must be in (0, 100]")
	}
	if c.Strategy.EntryPrice <= 0 {
		return fmt.Errorf("strategy.entry_price must be positive")
	}
	if c.Strategy.StopLoss <= 0 {
		return fmt.Errorf("strategy.stop_loss must be positive")
	}
	if c.Strategy.Side == "long" && c.Strategy.StopLoss >= c.Strategy.EntryPrice {
		return fmt.Errorf("long stop_loss must be below entry_price")
	}
	if c.Strategy.Side == "short" && c.Strategy.StopLoss <= c.Strategy.EntryPrice {
		return fmt.Errorf("short stop_loss must be above entry_price")
	}
	if tp := c.Strategy.TakeProfit; tp != 0 {
		if c.Strategy.Side == "long" && tp <= c.Strategy.EntryPrice {
			return fmt.Errorf("long take_profit must be above entry_price")
		}
		if c.Strategy.Side == "short" && tp >= c.Strategy.EntryPrice {
			return fmt.Errorf("short take_profit must be below entry_price")
		}
	}
	for i, step := range c.Simulation.PriceSteps {
		if step.Pair == "" {
			return fmt.Errorf("simulation.price_steps[%d].pair is required", i)
		}
		if step.Price <= 0 {
			return fmt.Errorf("simulation.price_steps[%d].price must be positive", i)
		}
		if step.DelayMS < 0 {
			return fmt.Errorf("simulation.price_steps[%d].delay_ms must not be negative", i)
		}
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:      "SIM-001",
			Balance: 10000,
		},
		Risk: RiskConfig{
			MaxNotionalPct: 0.20,
			DefaultRiskPct: 1,
		},
		Strategy: StrategyConfig{
			Pair:        "BTC/USDT",
			Side:        "long",
			RiskPercent: 1,
			EntryPrice:  50000,
			StopLoss:    49000,
			TakeProfit:  52000,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
