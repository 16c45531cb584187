package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/pricing"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "A2ZUSAGE_CONFIG"

type Config struct {
	// Timeout bounds each provider invocation.
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	// Disabled lists provider IDs that are never run.
	Disabled []string `yaml:"disabled,omitempty"`
	// Paths overrides the primary data path of a provider, keyed by ID.
	Paths   map[string]string        `yaml:"paths,omitempty"`
	Pricing map[string]pricing.Price `yaml:"pricing,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:     core.DefaultProviderTimeout,
		Concurrency: 0,
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "a2zusage")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "a2zusage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "a2zusage")
}

func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadFrom reads a YAML config. A missing file yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = core.DefaultProviderTimeout
	}
	if cfg.Concurrency < 0 {
		cfg.Concurrency = 0
	}
	for model, p := range cfg.Pricing {
		if p.InputPerMillion < 0 || p.OutputPerMillion < 0 || p.CacheReadPerMillion < 0 || p.CacheWritePerMillion < 0 {
			return DefaultConfig(), fmt.Errorf("parsing config %s: negative price for model %q", path, model)
		}
	}

	return cfg, nil
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Enabled reports whether the provider with the given ID should run.
// IDs in Disabled match case-insensitively.
func (c Config) Enabled(id string) bool {
	return !lo.ContainsBy(c.Disabled, func(d string) bool { return strings.EqualFold(d, id) })
}

// PricingTable builds the immutable price table for one run.
func (c Config) PricingTable() *pricing.Table {
	return pricing.New(c.Pricing)
}
