package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
account:
  id: SIM-TEST
  balance: 10000
risk:
  max_notional_pct: 0.2
  default_risk_pct: 1
strategy:
  pair: BTC/USDT
  side: long
  risk_percent: 1
  entry_price: 50000
  stop_loss: 49000
  take_profit: 52000
simulation:
  price_steps:
    - pair: BTC/USDT
      price: 49500
    - pair: BTC/USDT
      price: 49000
journal:
  type: none
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "SIM-TEST", cfg.Account.ID)
	assert.Equal(t, 10000.0, cfg.Account.Balance)
	assert.Equal(t, "BTC/USDT", cfg.Strategy.Pair)
	assert.Len(t, cfg.Simulation.PriceSteps, 2)
	assert.Equal(t, 49000.0, cfg.Simulation.PriceSteps[1].Price)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()

	for _, name := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(dir, name)
		assert.NoError(t, cfg.SaveToFile(path))

		got, err := LoadFromFile(path)
		assert.NoError(t, err)
		assert.Equal(t, cfg, got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero balance", func(c *Config) { c.Account.Balance = 0 }},
		{"cap over one", func(c *Config) { c.Risk.MaxNotionalPct = 1.5 }},
		{"zero risk pct", func(c *Config) { c.Risk.DefaultRiskPct = 0 }},
		{"missing pair", func(c *Config) { c.Strategy.Pair = "" }},
		{"bad side", func(c *Config) { c.Strategy.Side = "up" }},
		{"risk percent over 100", func(c *Config) { c.Strategy.RiskPercent = 150 }},
		{"zero entry", func(c *Config) { c.Strategy.EntryPrice = 0 }},
		{"long stop above entry", func(c *Config) { c.Strategy.StopLoss = 50500 }},
		{"long target below entry", func(c *Config) { c.Strategy.TakeProfit = 49500 }},
		{"short stop below entry", func(c *Config) {
			c.Strategy.Side = "short"
			c.Strategy.StopLoss = 49000
			c.Strategy.TakeProfit = 0
		}},
		{"step without pair", func(c *Config) {
			c.Simulation.PriceSteps = []PriceStep{{Price: 100}}
		}},
		{"step with zero price", func(c *Config) {
			c.Simulation.PriceSteps = []PriceStep{{Pair: "BTC/USDT"}}
		}},
		{"step with negative delay", func(c *Config) {
			c.Simulation.PriceSteps = []PriceStep{{Pair: "BTC/USDT", Price: 100, DelayMS: -5}}
		}},
		{"bad journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv without files", func(c *Config) {
			c.Journal = JournalConfig{Type: "csv"}
		}},
		{"sqlite without path", func(c *Config) {
			c.Journal = JournalConfig{Type: "sqlite"}
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
