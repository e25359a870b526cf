// Package config handles rumwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level rumwatch configuration.
type Config struct {
	Browser    BrowserConfig  `yaml:"browser"`
	Page       PageConfig     `yaml:"page"`
	Checkpoint CheckConfig    `yaml:"checkpoint"`
	Sampling   SamplingConfig `yaml:"sampling"`
	Dispatch   DispatchConfig `yaml:"dispatch"`
	Vitals     VitalsConfig   `yaml:"vitals"`
	Sinks      []SinkConfig   `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote   string `yaml:"remote"`   // attach to an existing devtools URL
	Headless bool   `yaml:"headless"` // ignored when Remote is set
	Stealth  bool   `yaml:"stealth"`
}

// PageConfig defines the page to instrument.
type PageConfig struct {
	URL      string        `yaml:"url"`
	LoadWait time.Duration `yaml:"load_wait"`
	// Attr is the attribute whose transition to "loaded" re-arms the
	// deferred-content observers. Default: data-block-status.
	Attr string `yaml:"attr"`
}

// CheckConfig selects which checkpoint kinds are active. Empty means all.
type CheckConfig struct {
	Enabled []string `yaml:"enabled"`
}

// SamplingConfig controls the 1-in-weight collection decision.
type SamplingConfig struct {
	Weight int `yaml:"weight"`
	// Force overrides the random draw: "on" always samples, "off" never.
	Force string `yaml:"force"`
}

// DispatchConfig controls the outbound beacon.
type DispatchConfig struct {
	BaseURL       string        `yaml:"base_url"` // empty: page origin
	RefererPolicy string        `yaml:"referer_policy"`
	RateMax       int           `yaml:"rate_max"`
	RateWindow    time.Duration `yaml:"rate_window"`
}

// VitalsConfig controls the web-vitals adapter.
type VitalsConfig struct {
	Enabled bool          `yaml:"enabled"`
	Src     string        `yaml:"src"`
	Delay   time.Duration `yaml:"delay"`
	// FlagHosts lists page hosts for which CLS and LCP report every
	// intermediate change instead of only the final value.
	FlagHosts []string `yaml:"flag_hosts"`
}

// SinkConfig defines a mirror backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | websocket | archive
	URL  string `yaml:"url"`  // for websocket
	Path string `yaml:"path"` // for archive
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if c.Page.LoadWait <= 0 {
		c.Page.LoadWait = 5 * time.Second
	}
	if c.Page.Attr == "" {
		c.Page.Attr = "data-block-status"
	}
	if c.Sampling.Weight <= 0 {
		c.Sampling.Weight = 100
	}
	if c.Dispatch.RefererPolicy == "" {
		c.Dispatch.RefererPolicy = "path"
	}
	if c.Dispatch.RateMax <= 0 {
		c.Dispatch.RateMax = 100
	}
	if c.Dispatch.RateWindow <= 0 {
		c.Dispatch.RateWindow = time.Minute
	}
	if c.Vitals.Src == "" {
		c.Vitals.Src = "https://unpkg.com/web-vitals@4/dist/web-vitals.attribution.iife.js"
	}
	if c.Vitals.Delay <= 0 {
		c.Vitals.Delay = 2 * time.Second
	}
}
