package route

import (
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// Config controls the router.
type Config struct {
	// Global routing
	Alpha           float32 `json:"alpha"`           // Steiner tree wirelength/path length blend (default: 0.75)
	UseChannelModel bool    `json:"useChannelModel"` // Steer Steiner corners by estimated channel demand (default: true)

	// Negotiated congestion
	MaxRounds     int             `json:"maxRounds"`     // Rip-up and reroute rounds (default: 50)
	StallRounds   int             `json:"stallRounds"`   // Give up after this many rounds without improvement, 0 disables (default: 8)
	TimeBudget    metav1.Duration `json:"timeBudget"`    // Wall clock budget, 0 disables (default: 0)
	PresentFactor float64         `json:"presentFactor"` // Initial present congestion multiplier (default: 0.5)
	PresentGrowth float64         `json:"presentGrowth"` // Present factor growth per round (default: 1.5)
	HistoryFactor float64         `json:"historyFactor"` // Historical cost added per unit of overuse (default: 1.0)

	// Detail search
	MaxExpansions      int     `json:"maxExpansions"`      // Wavefront pops per sink before giving up (default: 200000)
	Tolerance          int     `json:"tolerance"`          // Corridor tolerance in cells (default: 1)
	GuideWeight        float64 `json:"guideWeight"`        // Cost per cell of distance from the corridor line (default: 0.1)
	OffCorridorPenalty float64 `json:"offCorridorPenalty"` // Cost of leaving the corridor (default: 1.0)
	RegressPenalty     float64 `json:"regressPenalty"`     // Cost of stepping backwards along the corridor (default: 2.0)
	UnguidedFallback   bool    `json:"unguidedFallback"`   // Retry a failed guided search without guidance (default: true)

	// Parallelism
	Workers    int `json:"workers"`    // Concurrent nets per batch, 1 is sequential (default: 1)
	BBoxMargin int `json:"bboxMargin"` // Cells added around a net box when batching (default: 2)
}

// DefaultConfig returns a Config with sensible defaults for most designs.
func DefaultConfig() *Config {
	return &Config{
		Alpha:              0.75,
		UseChannelModel:    true,
		MaxRounds:          50,
		StallRounds:        8,
		PresentFactor:      0.5,
		PresentGrowth:      1.5,
		HistoryFactor:      1.0,
		MaxExpansions:      200000,
		Tolerance:          1,
		GuideWeight:        0.1,
		OffCorridorPenalty: 1.0,
		RegressPenalty:     2.0,
		UnguidedFallback:   true,
		Workers:            1,
		BBoxMargin:         2,
	}
}

// Validate checks the configuration for errors, clamping soft limits.
func (c *Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("route: alpha must be in [0, 1], got %v", c.Alpha)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("route: maxRounds must be positive, got %d", c.MaxRounds)
	}
	if c.PresentFactor < 0 || c.HistoryFactor < 0 {
		return fmt.Errorf("route: congestion factors must not be negative")
	}
	if c.PresentGrowth < 1 {
		return fmt.Errorf("route: presentGrowth must be at least 1, got %v", c.PresentGrowth)
	}
	if c.MaxExpansions < 1 {
		return fmt.Errorf("route: maxExpansions must be positive, got %d", c.MaxExpansions)
	}
	if c.TimeBudget.Duration < 0 {
		return fmt.Errorf("route: timeBudget must not be negative")
	}
	if c.GuideWeight < 0 || c.OffCorridorPenalty < 0 || c.RegressPenalty < 0 {
		return fmt.Errorf("route: guidance costs must not be negative")
	}

	if c.StallRounds < 0 {
		c.StallRounds = 0
	}
	if c.Tolerance < 0 {
		c.Tolerance = 0
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.BBoxMargin < 0 {
		c.BBoxMargin = 0
	}
	return nil
}

// Budget returns the time budget, zero when unlimited.
func (c *Config) Budget() time.Duration {
	return c.TimeBudget.Duration
}

// LoadConfigFile reads a YAML configuration on top of the defaults.
func LoadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("route: invalid config %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
