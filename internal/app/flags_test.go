package app

import (
	"errors"
	"flag"
	"io"
	"testing"

	"wildfire/internal/sims/wildfire"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := NewConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.Bind(fs)
	return cfg, fs.Parse(args)
}

func TestWorldLayersFileFlagsAndOverrides(t *testing.T) {
	cfg, err := parse(t,
		"-config", "../../configs/firelines.yaml",
		"-seed", "7",
		"-w", "40",
		"-set", "number_firefighters=3",
		"-set", "firefighter_strategy=cut-down",
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	world, err := cfg.World()
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	if world.Width != 40 || world.Height != 80 {
		t.Fatalf("size = %dx%d, want 40x80", world.Width, world.Height)
	}
	if world.Seed != 7 {
		t.Fatalf("seed = %d, want 7", world.Seed)
	}
	p := world.Params
	if p.NumberFirefighters != 3 || p.Strategy != wildfire.StrategyCutDown {
		t.Fatalf("overrides not applied: %d firefighters, %s", p.NumberFirefighters, p.Strategy)
	}
	if p.FireLineMargin != 5 || p.SpreadCoefficient != 0.6 {
		t.Fatalf("file values lost: margin %d, spread %v", p.FireLineMargin, p.SpreadCoefficient)
	}
}

func TestWorldDefaultsWithoutFlags(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	world, err := cfg.World()
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	def := wildfire.DefaultConfig()
	if world.Width != def.Width || world.Seed != def.Seed || world.Params != def.Params {
		t.Fatalf("World() = %+v, want defaults", world)
	}
	if cfg.Scale != 4 || cfg.TPS != 15 || cfg.HUDWidth != 280 {
		t.Fatalf("unexpected flag defaults %+v", cfg)
	}
}

func TestWorldRejectsBadOverrides(t *testing.T) {
	if _, err := parse(t, "-set", "no-equals"); err == nil {
		t.Fatal("expected parse error for malformed -set")
	}

	cfg, err := parse(t, "-set", "bogus=1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cfg.World(); !errors.Is(err, wildfire.ErrInvalidConfig) {
		t.Fatalf("unknown key error = %v", err)
	}

	cfg, err = parse(t, "-set", "burn_decay=2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cfg.World(); !errors.Is(err, wildfire.ErrInvalidConfig) {
		t.Fatalf("out of range error = %v", err)
	}

	cfg, err = parse(t, "-config", "does-not-exist.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cfg.World(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
