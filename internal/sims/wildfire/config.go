package wildfire

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("wildfire: invalid config")

// DensityDist selects the law used to draw initial tree densities.
type DensityDist string

const (
	DensityBeta    DensityDist = "beta"
	DensityUniform DensityDist = "uniform"
)

// IgnitionLaw selects the spontaneous ignition probability.
type IgnitionLaw string

const (
	// IgnitionLinear uses p = load * coefficient.
	IgnitionLinear IgnitionLaw = "linear"
	// IgnitionSeasonal uses p = load² * coefficient * seasonal(tick).
	IgnitionSeasonal IgnitionLaw = "seasonal"
)

// Neighborhood selects which cells count as adjacent for fire spread.
type Neighborhood string

const (
	NeighborhoodMoore Neighborhood = "moore"
	// NeighborhoodVonNeumann is the early 4-connected variant.
	NeighborhoodVonNeumann Neighborhood = "von_neumann"
)

// Params holds the stochastic rates, strategy settings and initial
// distribution shapes for a run. Densities are absolute (0..MaxDensity);
// coefficients and thresholds apply to the normalised load density/MaxDensity.
// Ignition and spread probabilities are clamped to 1, so their coefficients
// may exceed it.
type Params struct {
	MaxDensity   float64     `yaml:"max_density"`
	DensityDist  DensityDist `yaml:"density_dist"`
	DensityAlpha float64     `yaml:"density_alpha"`
	DensityBeta  float64     `yaml:"density_beta"`
	DensityLower float64     `yaml:"density_lower"`
	DensityUpper float64     `yaml:"density_upper"`

	IgnitionLaw         IgnitionLaw  `yaml:"ignition_law"`
	IgnitionCoefficient float64      `yaml:"ignition_coefficient"`
	SpreadCoefficient   float64      `yaml:"spread_coefficient"`
	BurnDecay           float64      `yaml:"burn_decay"`
	BurnoutThreshold    float64      `yaml:"burnout_threshold"`
	GrowthRate          float64      `yaml:"growth_rate"`
	SeasonalGrowth      bool         `yaml:"seasonal_growth"`
	Neighborhood        Neighborhood `yaml:"neighborhood"`

	WaterChance float64 `yaml:"water_chance"`
	RoadChance  float64 `yaml:"road_chance"`

	NumberFirefighters   int          `yaml:"number_firefighters"`
	Strategy             StrategyKind `yaml:"firefighter_strategy"`
	ExtinguishDifficulty float64      `yaml:"extinguish_difficulty"`
	ExtinguishRadius     int          `yaml:"extinguish_radius"`
	ExtinguishAlways     bool         `yaml:"extinguish_always"`
	FireLineMargin       int          `yaml:"fire_line_margin"`
	CutDownAmount        float64      `yaml:"cut_down_amount"`
	BurnThreshold        float64      `yaml:"burn_threshold"`
	IntelligentThreshold float64      `yaml:"intelligent_threshold"`
	ResponseDelay        int          `yaml:"firefighter_response_delay"`
}

// Config controls the wildfire world dimensions, seed and rule parameters.
type Config struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`

	Params Params `yaml:"params"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:  50,
		Height: 50,
		Seed:   1337,
		Params: Params{
			MaxDensity:           555,
			DensityDist:          DensityBeta,
			DensityAlpha:         1.5,
			DensityBeta:          10,
			DensityLower:         0,
			DensityUpper:         1,
			IgnitionLaw:          IgnitionLinear,
			IgnitionCoefficient:  0.01,
			SpreadCoefficient:    0.2,
			BurnDecay:            0.9,
			BurnoutThreshold:     0.1,
			GrowthRate:           0.2,
			Neighborhood:         NeighborhoodMoore,
			NumberFirefighters:   10,
			Strategy:             StrategyExtinguish,
			ExtinguishDifficulty: 5,
			ExtinguishRadius:     1,
			FireLineMargin:       5,
			CutDownAmount:        555,
			BurnThreshold:        0.5,
			IntelligentThreshold: 0.02,
			ResponseDelay:        1,
		},
	}
}

// Validate reports the first out-of-range field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	p := c.Params
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return invalid("grid must be at least 1x1, got %dx%d", c.Width, c.Height)
	case !(p.MaxDensity > 0):
		return invalid("max_density must be positive, got %v", p.MaxDensity)
	}
	switch p.DensityDist {
	case DensityBeta:
		if !(p.DensityAlpha > 0) || !(p.DensityBeta > 0) {
			return invalid("beta shape parameters must be positive, got alpha=%v beta=%v", p.DensityAlpha, p.DensityBeta)
		}
	case DensityUniform:
		if err := unitInterval("density_lower", p.DensityLower); err != nil {
			return err
		}
		if err := unitInterval("density_upper", p.DensityUpper); err != nil {
			return err
		}
		if p.DensityLower > p.DensityUpper {
			return invalid("density_lower %v exceeds density_upper %v", p.DensityLower, p.DensityUpper)
		}
	default:
		return invalid("unknown density_dist %q", p.DensityDist)
	}
	switch p.IgnitionLaw {
	case IgnitionLinear, IgnitionSeasonal:
	default:
		return invalid("unknown ignition_law %q", p.IgnitionLaw)
	}
	switch p.Neighborhood {
	case NeighborhoodMoore, NeighborhoodVonNeumann:
	default:
		return invalid("unknown neighborhood %q", p.Neighborhood)
	}
	if _, err := NewStrategy(p.Strategy, p); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"burn_decay", p.BurnDecay},
		{"burnout_threshold", p.BurnoutThreshold},
		{"growth_rate", p.GrowthRate},
		{"water_chance", p.WaterChance},
		{"road_chance", p.RoadChance},
		{"burn_threshold", p.BurnThreshold},
		{"intelligent_threshold", p.IntelligentThreshold},
	} {
		if err := unitInterval(f.name, f.v); err != nil {
			return err
		}
	}
	switch {
	case !(p.IgnitionCoefficient >= 0):
		return invalid("ignition_coefficient must not be negative, got %v", p.IgnitionCoefficient)
	case !(p.SpreadCoefficient >= 0):
		return invalid("spread_coefficient must not be negative, got %v", p.SpreadCoefficient)
	case p.WaterChance+p.RoadChance >= 1:
		return invalid("water_chance + road_chance must stay below 1, got %v", p.WaterChance+p.RoadChance)
	case p.NumberFirefighters < 0:
		return invalid("number_firefighters must not be negative, got %d", p.NumberFirefighters)
	case !(p.ExtinguishDifficulty > 0):
		return invalid("extinguish_difficulty must be positive, got %v", p.ExtinguishDifficulty)
	case p.ExtinguishRadius < 0 || p.ExtinguishRadius > 1:
		return invalid("extinguish_radius must be 0 or 1, got %d", p.ExtinguishRadius)
	case p.FireLineMargin < 0:
		return invalid("fire_line_margin must not be negative, got %d", p.FireLineMargin)
	case p.CutDownAmount < 0:
		return invalid("cut_down_amount must not be negative, got %v", p.CutDownAmount)
	case p.ResponseDelay < 0:
		return invalid("firefighter_response_delay must not be negative, got %d", p.ResponseDelay)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func unitInterval(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return invalid("%s must lie in [0,1], got %v", name, v)
	}
	return nil
}

// LoadYAML reads a config file on top of DefaultConfig, so files only need to
// list the fields they change.
func LoadYAML(path string) (Config, error) {
	c := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FromMap populates the config from a string map (flag-style key/value pairs).
// Unparseable values are ignored and leave the default in place.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	ApplyMap(&c, cfg)
	return c
}

// ApplyMap overlays flag-style key/value pairs onto c and returns the keys it
// did not recognise or could not parse.
func ApplyMap(c *Config, cfg map[string]string) []string {
	var rejected []string
	for k, v := range cfg {
		if !Apply(c, k, v) {
			rejected = append(rejected, k)
		}
	}
	return rejected
}

// Apply sets a single key on c. It reports false for unknown keys or values
// that fail to parse.
func Apply(c *Config, key, value string) bool {
	p := &c.Params
	switch key {
	case "w", "width":
		return setInt(&c.Width, value)
	case "h", "height":
		return setInt(&c.Height, value)
	case "seed":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		c.Seed = parsed
		return true
	case "max_density":
		return setFloat(&p.MaxDensity, value)
	case "density_dist":
		p.DensityDist = DensityDist(value)
		return true
	case "density_alpha":
		return setFloat(&p.DensityAlpha, value)
	case "density_beta":
		return setFloat(&p.DensityBeta, value)
	case "density_lower":
		return setFloat(&p.DensityLower, value)
	case "density_upper":
		return setFloat(&p.DensityUpper, value)
	case "ignition_law":
		p.IgnitionLaw = IgnitionLaw(value)
		return true
	case "ignition_coefficient":
		return setFloat(&p.IgnitionCoefficient, value)
	case "spread_coefficient", "fire_spread_param":
		return setFloat(&p.SpreadCoefficient, value)
	case "burn_decay":
		return setFloat(&p.BurnDecay, value)
	case "burnout_threshold":
		return setFloat(&p.BurnoutThreshold, value)
	case "growth_rate":
		return setFloat(&p.GrowthRate, value)
	case "seasonal_growth":
		return setBool(&p.SeasonalGrowth, value)
	case "neighborhood":
		p.Neighborhood = Neighborhood(value)
		return true
	case "water_chance":
		return setFloat(&p.WaterChance, value)
	case "road_chance":
		return setFloat(&p.RoadChance, value)
	case "number_firefighters":
		return setInt(&p.NumberFirefighters, value)
	case "firefighter_strategy", "strategy":
		p.Strategy = StrategyKind(value)
		return true
	case "extinguish_difficulty":
		return setFloat(&p.ExtinguishDifficulty, value)
	case "extinguish_radius":
		return setInt(&p.ExtinguishRadius, value)
	case "extinguish_always":
		return setBool(&p.ExtinguishAlways, value)
	case "fire_line_margin":
		return setInt(&p.FireLineMargin, value)
	case "cut_down_amount":
		return setFloat(&p.CutDownAmount, value)
	case "burn_threshold":
		return setFloat(&p.BurnThreshold, value)
	case "intelligent_threshold":
		return setFloat(&p.IntelligentThreshold, value)
	case "firefighter_response_delay", "response_delay":
		return setInt(&p.ResponseDelay, value)
	}
	return false
}

func setInt(dst *int, value string) bool {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	*dst = parsed
	return true
}

func setFloat(dst *float64, value string) bool {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	*dst = parsed
	return true
}

func setBool(dst *bool, value string) bool {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	*dst = parsed
	return true
}
