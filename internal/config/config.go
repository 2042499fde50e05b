// Package config loads the agent's main configuration from YAML, in the
// teacher's style: a flat struct tree with yaml.v3 tags, loaded once at
// startup and validated before the pipeline starts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nse-agent/marketagent/internal/config/guardcfg"
)

// Thresholds holds the threshold settings loaded from config.yaml. Only
// RegimeRiskCeiling is read by the pipeline; the MTF 3%/2% thresholds
// and the other gate thresholds are literals in internal/mtf and
// internal/gates, and the remaining fields here do not change them.
type Thresholds struct {
	UnstableExtensionPct float64 `yaml:"unstable_extension_pct"`
	HTFLocationPct       float64 `yaml:"htf_location_pct"`
	RegimeRiskCeiling    float64 `yaml:"regime_risk_ceiling"`
	OverconfidenceCeiling float64 `yaml:"overconfidence_ceiling"`
	DominanceFloor       float64 `yaml:"dominance_floor"`
}

// MTFConfig holds the multi-timeframe settings loaded from config.yaml.
// The aggregator does not read ReasoningMaxAgeHours; its reasoning-only
// freshness window is a fixed 24 hours.
type MTFConfig struct {
	ReasoningMaxAgeHours int `yaml:"reasoning_max_age_hours"`
}

// ResolverConfig controls the symbol resolver's web-search safety
// budget.
type ResolverConfig struct {
	GoogleMinIntervalSeconds int `yaml:"google_min_interval_seconds"`
	ChartTimeoutSeconds      int `yaml:"chart_timeout_seconds"`
	LLMTimeoutSeconds        int `yaml:"llm_timeout_seconds"`
	VLMTimeoutSeconds        int `yaml:"vlm_timeout_seconds"`
	SearchTimeoutSeconds     int `yaml:"search_timeout_seconds"`
}

// SafetyToggles MUST all be false in normal operation; Validate refuses
// to run otherwise.
type SafetyToggles struct {
	AllowTrading           bool `yaml:"allow_trading"`
	AllowChartDrawing      bool `yaml:"allow_chart_drawing"`
	AllowCoordinateClicks  bool `yaml:"allow_coordinate_clicks"`
	AllowChartManipulation bool `yaml:"allow_chart_manipulation"`
}

// StoreConfig configures the analysis store's Postgres connection.
type StoreConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	SymbolCachePath string `yaml:"symbol_cache_path"`
	GateLogPath     string `yaml:"gate_log_path"`
}

// ScanConfig configures C11's default top-N reporting.
type ScanConfig struct {
	DefaultTopN int `yaml:"default_top_n"`
}

// Config is the root application configuration loaded from config.yaml.
type Config struct {
	Thresholds Thresholds    `yaml:"thresholds"`
	MTF        MTFConfig     `yaml:"mtf"`
	Resolver   ResolverConfig `yaml:"resolver"`
	Safety     SafetyToggles `yaml:"safety"`
	Store      StoreConfig   `yaml:"store"`
	Scan       ScanConfig    `yaml:"scan"`
	Guards     guardcfg.GuardsConfig `yaml:"-"`
}

// Default returns a Config populated with the spec's fixed defaults.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			UnstableExtensionPct:  0.03,
			HTFLocationPct:        0.02,
			RegimeRiskCeiling:     0.35,
			OverconfidenceCeiling: 0.70,
			DominanceFloor:        0.50,
		},
		MTF: MTFConfig{ReasoningMaxAgeHours: 24},
		Resolver: ResolverConfig{
			GoogleMinIntervalSeconds: 30,
			ChartTimeoutSeconds:      15,
			LLMTimeoutSeconds:        20,
			VLMTimeoutSeconds:        20,
			SearchTimeoutSeconds:     15,
		},
		Store: StoreConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			SymbolCachePath: "data/symbol_cache.json",
			GateLogPath:     "data/gate_log.json",
		},
		Scan: ScanConfig{DefaultTopN: 5},
	}
}

// Load reads the main config YAML at path, falling back to Default()
// values for anything unset, then validates safety toggles.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadGuards loads the narrower gate/guard threshold sub-config, kept on
// yaml.v2 the way the teacher keeps its guards tier on v2 alongside the
// v3 main config.
func (c *Config) LoadGuards(path string) error {
	g, err := guardcfg.Load(path)
	if err != nil {
		return fmt.Errorf("load guard config: %w", err)
	}
	c.Guards = *g
	return nil
}

// Validate refuses to run if any safety toggle is true.
func (c Config) Validate() error {
	s := c.Safety
	if s.AllowTrading || s.AllowChartDrawing || s.AllowCoordinateClicks || s.AllowChartManipulation {
		return fmt.Errorf("config: safety toggles must all be false for the read-only analysis agent")
	}
	return nil
}
