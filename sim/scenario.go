package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioConfig holds the knobs of the reference two-node link-layer
// scenario, loadable from a YAML file. Nil pointer fields mean "not set in
// YAML" and do not override CLI flag defaults.
type ScenarioConfig struct {
	Seed *int64 `yaml:"seed"`

	// Pairs is the requested entangled-pair count per request.
	Pairs *int `yaml:"pairs"`

	// Positions is the number of storage positions per processor, in
	// addition to the emission position.
	Positions *int `yaml:"positions"`

	// CadenceTicks is the physical-layer trigger period.
	CadenceTicks *int64 `yaml:"cadence_ticks"`

	// TravelTicks bounds the clock skew between the two services: a
	// request agreed now starts being serviced at now + travel.
	TravelTicks *int64 `yaml:"travel_ticks"`

	// WindowTicks is the midpoint detector coincidence window.
	WindowTicks *int64 `yaml:"window_ticks"`

	// ChannelDelayTicks is the one-way propagation delay on both the
	// classical and quantum channels.
	ChannelDelayTicks *int64 `yaml:"channel_delay_ticks"`

	// SuccessProbability is the chance a coincident detection heralds a
	// usable pair.
	SuccessProbability *float64 `yaml:"success_probability"`
}

// LoadScenarioConfig reads and parses a YAML scenario file.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks parameter ranges.
func (c *ScenarioConfig) Validate() error {
	if c.Pairs != nil && *c.Pairs <= 0 {
		return fmt.Errorf("pairs must be positive, got %d", *c.Pairs)
	}
	if c.Positions != nil && *c.Positions <= 0 {
		return fmt.Errorf("positions must be positive, got %d", *c.Positions)
	}
	if c.CadenceTicks != nil && *c.CadenceTicks <= 0 {
		return fmt.Errorf("cadence_ticks must be positive, got %d", *c.CadenceTicks)
	}
	if c.TravelTicks != nil && *c.TravelTicks < 0 {
		return fmt.Errorf("travel_ticks must be non-negative, got %d", *c.TravelTicks)
	}
	if c.WindowTicks != nil && *c.WindowTicks <= 0 {
		return fmt.Errorf("window_ticks must be positive, got %d", *c.WindowTicks)
	}
	if c.ChannelDelayTicks != nil && *c.ChannelDelayTicks < 0 {
		return fmt.Errorf("channel_delay_ticks must be non-negative, got %d", *c.ChannelDelayTicks)
	}
	if c.SuccessProbability != nil && (*c.SuccessProbability < 0 || *c.SuccessProbability > 1) {
		return fmt.Errorf("success_probability must be in [0, 1], got %f", *c.SuccessProbability)
	}
	return nil
}
