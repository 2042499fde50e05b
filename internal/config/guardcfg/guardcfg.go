// Package guardcfg loads the narrower gate-threshold profile tier on
// yaml.v2, matching the teacher's split between a v3 main config and a
// v2 guards/regime-style sub-config.
package guardcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// GateThresholds names the per-gate override values a profile may set.
type GateThresholds struct {
	RegimeRiskCeiling     float64 `yaml:"regime_risk_ceiling"`
	OverconfidenceCeiling float64 `yaml:"overconfidence_ceiling"`
	DominanceFloor        float64 `yaml:"dominance_floor"`
}

// Profile is a named set of gate thresholds, e.g. "conservative" or
// "aggressive".
type Profile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Thresholds  GateThresholds `yaml:"thresholds"`
}

// GuardsConfig is the root of the guards YAML document.
type GuardsConfig struct {
	ActiveProfile string             `yaml:"active_profile"`
	Profiles      map[string]Profile `yaml:"profiles"`
}

// Load reads and parses a guards YAML file. A missing file is not an
// error: it returns an empty GuardsConfig so callers fall back to the
// main config's thresholds.
func Load(path string) (*GuardsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GuardsConfig{}, nil
		}
		return nil, fmt.Errorf("read guards config: %w", err)
	}
	var cfg GuardsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse guards config: %w", err)
	}
	return &cfg, nil
}

// Active returns the currently active profile, if any is configured.
func (c GuardsConfig) Active() (Profile, bool) {
	if c.ActiveProfile == "" {
		return Profile{}, false
	}
	p, ok := c.Profiles[c.ActiveProfile]
	return p, ok
}
