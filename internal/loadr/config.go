package loadr

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedConfig describes the fixture database written by Load.
type SeedConfig struct {
	Driver    string `yaml:"driver"`
	Output    string `yaml:"output"`
	Seed      int64  `yaml:"seed"`
	Customers int    `yaml:"customers"`
	Products  int    `yaml:"products"`
	Orders    int    `yaml:"orders"`
}

// RunConfig describes a workload against a running gateway.
type RunConfig struct {
	Gateway     string `yaml:"gateway"`
	RunID       string `yaml:"runId"`
	Subject     string `yaml:"subject"`
	Seed        int64  `yaml:"seed"`
	Concurrency int    `yaml:"concurrency"`
	TotalOps    int    `yaml:"totalOps"`

	// Mix weights are normalized to sum to 1.
	Mix struct {
		Select    float64 `yaml:"select"`
		Export    float64 `yaml:"export"`
		Dangerous float64 `yaml:"dangerous"`
		Invalid   float64 `yaml:"invalid"`
	} `yaml:"mix"`
}

func readYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ReadSeedConfig loads a SeedConfig and fills defaults.
func ReadSeedConfig(path string) (SeedConfig, error) {
	var cfg SeedConfig
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}
	if cfg.Output == "" {
		cfg.Output = "seed.sql"
	}
	if cfg.Customers <= 0 {
		cfg.Customers = 100
	}
	if cfg.Products <= 0 {
		cfg.Products = 50
	}
	if cfg.Orders <= 0 {
		cfg.Orders = 500
	}
	return cfg, nil
}

// ReadRunConfig loads a RunConfig, fills defaults and normalizes the mix.
func ReadRunConfig(path string) (RunConfig, error) {
	var cfg RunConfig
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Gateway == "" {
		cfg.Gateway = "http://127.0.0.1:3000"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TotalOps <= 0 {
		cfg.TotalOps = 100
	}
	normalizeMix(&cfg)
	return cfg, nil
}

// normalizeMix scales the mix to sum to 1. An empty mix defaults to
// 70% select, 10% export, 10% dangerous, 10% invalid.
func normalizeMix(cfg *RunConfig) {
	m := &cfg.Mix
	tot := m.Select + m.Export + m.Dangerous + m.Invalid
	if tot <= 0 {
		m.Select, m.Export, m.Dangerous, m.Invalid = 0.7, 0.1, 0.1, 0.1
		return
	}
	m.Select /= tot
	m.Export /= tot
	m.Dangerous /= tot
	m.Invalid /= tot
}
