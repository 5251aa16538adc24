package app

import (
	"flag"
	"fmt"
	"strings"

	"wildfire/internal/sims/wildfire"
)

// KVList collects repeatable key=value flags.
type KVList []string

func (l *KVList) String() string {
	return strings.Join(*l, ",")
}

func (l *KVList) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("override %q is not in key=value form", value)
	}
	*l = append(*l, value)
	return nil
}

// Config represents the command-line parameters shared by the wildfire tools.
type Config struct {
	ConfigPath string
	Width      int
	Height     int
	Seed       int64
	Scale      int
	TPS        int
	HUDWidth   int
	Sets       KVList
}

// NewConfig returns a Config populated with sensible defaults. Zero size and
// seed keep whatever the config file or defaults specify.
func NewConfig() *Config {
	return &Config{Scale: 4, TPS: 15, HUDWidth: 280}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", c.ConfigPath, "YAML run configuration")
	fs.IntVar(&c.Width, "w", c.Width, "grid width (0 keeps the configured width)")
	fs.IntVar(&c.Height, "h", c.Height, "grid height (0 keeps the configured height)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset (0 keeps the configured seed)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "parameter panel width in pixels (0 hides it)")
	fs.Var(&c.Sets, "set", "parameter override in key=value form (repeatable)")
}

// World resolves the run configuration: defaults, then the YAML file, then
// size and seed flags, then -set overrides in order.
func (c *Config) World() (wildfire.Config, error) {
	cfg := wildfire.DefaultConfig()
	if c.ConfigPath != "" {
		loaded, err := wildfire.LoadYAML(c.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if c.Width > 0 {
		cfg.Width = c.Width
	}
	if c.Height > 0 {
		cfg.Height = c.Height
	}
	if c.Seed != 0 {
		cfg.Seed = c.Seed
	}
	for _, kv := range c.Sets {
		key, value, _ := strings.Cut(kv, "=")
		if !wildfire.Apply(&cfg, key, value) {
			return cfg, fmt.Errorf("%w: cannot apply override %q", wildfire.ErrInvalidConfig, kv)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
