package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pthooks/native/claimer"
	"pthooks/native/fees"
	"pthooks/native/hooks"
)

// Config is the on-disk configuration of the hook simulator.
type Config struct {
	DataDir        string    `toml:"DataDir"`
	Environment    string    `toml:"Environment"`
	MetricsAddress string    `toml:"MetricsAddress"`
	Pool           Pool      `toml:"pool"`
	Vault          Vault     `toml:"vault"`
	Trust          Trust     `toml:"trust"`
	Compound       Compound  `toml:"compound"`
	Raffle         Raffle    `toml:"raffle"`
	Selection      Selection `toml:"selection"`
	Claimer        Claimer   `toml:"claimer"`
}

// Load loads the configuration from the given path. A missing file is
// created with the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.Selection.Budget == 0 {
		cfg.Selection.Budget = hooks.DefaultSelectionBudget
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:     "./hooks-data",
		Environment: "dev",
		Pool: Pool{
			Address:    "0x5000000000000000000000000000000000000001",
			PrizeToken: "POOL",
			Tiers: []Tier{
				{PrizeSize: "1000000000000000000000", PrizeCount: 1},
				{PrizeSize: "100000000000000000000", PrizeCount: 4},
				{PrizeSize: "1000000000000000000", PrizeCount: 16},
			},
			CanaryTiers:       1,
			DrawPeriodSeconds: 86_400,
			Reserve:           "10000000000000000000000",
		},
		Vault: Vault{
			Address:    "0x5100000000000000000000000000000000000001",
			ShareToken: "PPOOL",
		},
		Trust: Trust{
			Owner:         "0x0a00000000000000000000000000000000000001",
			TrustedVaults: []string{"0x5100000000000000000000000000000000000001"},
			Strict:        true,
		},
		Compound: Compound{
			Address:   "0x5200000000000000000000000000000000000001",
			Fees:      fees.Schedule{RewardFeeBps: 50, LiquidityFeeBps: 50},
			Liquidity: "500000000000000000000",
		},
		Raffle: Raffle{
			Address:      "0x5300000000000000000000000000000000000001",
			FirstTokenID: 1,
			TokenCount:   64,
		},
		Selection: Selection{Budget: hooks.DefaultSelectionBudget},
		Claimer: Claimer{
			Address:  "0xc100000000000000000000000000000000000001",
			Ramp:     claimer.DefaultRamp(),
			Reinvest: true,
		},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
