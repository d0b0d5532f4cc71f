package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	defaultFaucetAmount = 100_000_000 // 100 units
	defaultVMBudget     = 700

	configFile   = "config.json"
	accountsFile = "accounts.json"
	ledgerFile   = "ledger.json"
)

// Config holds all chainlab configuration. Environment variables override
// the file on load.
type Config struct {
	DefaultAccount string `json:"default_account" env:"CHAINLAB_DEFAULT_ACCOUNT"`
	FaucetAmount   uint64 `json:"faucet_amount"   env:"CHAINLAB_FAUCET_AMOUNT"`
	VMBudget       int    `json:"vm_budget"       env:"CHAINLAB_VM_BUDGET"`

	// internal: config dir path used for Save()
	configDir string
}

// Load reads config from dir (or creates defaults). dir defaults to
// ~/.chainlab.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".chainlab")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		cfg.configDir = dir
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// AccountsPath is the accounts.json location.
func (c *Config) AccountsPath() string {
	return filepath.Join(c.configDir, accountsFile)
}

// LedgerPath is the ledger.json location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.configDir, ledgerFile)
}

func defaults(dir string) *Config {
	return &Config{
		FaucetAmount: defaultFaucetAmount,
		VMBudget:     defaultVMBudget,
		configDir:    dir,
	}
}
