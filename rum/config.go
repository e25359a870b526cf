package rum

import (
	"github.com/hazyhaar/rumwatch/rum/internal/config"
)

// Config is the top-level rumwatch configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines the page to instrument.
type PageConfig = config.PageConfig

// CheckConfig selects the active checkpoint kinds.
type CheckConfig = config.CheckConfig

// SamplingConfig controls the 1-in-weight collection decision.
type SamplingConfig = config.SamplingConfig

// DispatchConfig controls the outbound beacon.
type DispatchConfig = config.DispatchConfig

// VitalsConfig controls the web-vitals adapter.
type VitalsConfig = config.VitalsConfig

// SinkConfig defines a mirror backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
