package sweep

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	pcore "wildfire/pkg/core"

	"wildfire/internal/sims/wildfire"
)

func smallBase() wildfire.Config {
	cfg := wildfire.DefaultConfig()
	cfg.Width = 12
	cfg.Height = 12
	cfg.Seed = 3
	return cfg
}

func TestDrawStaysInsideBounds(t *testing.T) {
	p := DefaultProblem()
	samples := p.Draw(pcore.NewRNG(11), 200)
	if len(samples) != 200 {
		t.Fatalf("samples = %d", len(samples))
	}
	for _, s := range samples {
		for j, b := range p {
			v := s.Values[j]
			if v < b.Min || v > b.Max {
				t.Fatalf("%s=%v outside [%v, %v]", b.Key, v, b.Min, b.Max)
			}
			if b.Integer && v != math.Trunc(v) {
				t.Fatalf("%s=%v is not whole", b.Key, v)
			}
		}
	}
}

func TestDrawReachesIntegerExtremes(t *testing.T) {
	p := Problem{{Key: "fire_line_margin", Min: 1, Max: 3, Integer: true}}
	seen := map[float64]bool{}
	for _, s := range p.Draw(pcore.NewRNG(5), 300) {
		seen[s.Values[0]] = true
	}
	for _, want := range []float64{1, 2, 3} {
		if !seen[want] {
			t.Fatalf("value %v never drawn: %v", want, seen)
		}
	}
}

func TestApplyWritesSample(t *testing.T) {
	p := DefaultProblem()
	cfg := smallBase()
	s := Sample{Values: []float64{0.25, 7, 3, 420.5, 2}}
	if err := p.Apply(&cfg, s); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := cfg.Params
	if got.SpreadCoefficient != 0.25 || got.NumberFirefighters != 7 || got.FireLineMargin != 3 ||
		got.CutDownAmount != 420.5 || got.ResponseDelay != 2 {
		t.Fatalf("sample not applied: %+v", got)
	}
	if err := p.Apply(&cfg, Sample{Values: []float64{1}}); err == nil {
		t.Fatal("expected an error for a short sample")
	}
	if d := p.Describe(s); !strings.Contains(d, "number_firefighters=7") {
		t.Fatalf("Describe = %q", d)
	}
}

func TestProblemValidate(t *testing.T) {
	base := smallBase()
	if err := DefaultProblem().Validate(base); err != nil {
		t.Fatalf("default problem: %v", err)
	}
	cases := map[string]Problem{
		"empty":     {},
		"unknown":   {{Key: "wind", Min: 0, Max: 1}},
		"reversed":  {{Key: "growth_rate", Min: 0.5, Max: 0.1}},
		"duplicate": {{Key: "growth_rate", Min: 0, Max: 1}, {Key: "growth_rate", Min: 0, Max: 1}},
	}
	for name, p := range cases {
		if err := p.Validate(base); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
	err := Problem{{Key: "burn_decay", Min: 0.5, Max: 1.5}}.Validate(base)
	if !errors.Is(err, wildfire.ErrInvalidConfig) {
		t.Fatalf("out-of-range bound: got %v, want ErrInvalidConfig", err)
	}
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	opts := Options{
		Base:       smallBase(),
		Strategies: []wildfire.StrategyKind{wildfire.StrategyExtinguish, wildfire.StrategyCutDown},
		Samples:    3,
		Replicates: 2,
		Ticks:      15,
		Seed:       9,
	}

	opts.Workers = 1
	serial, err := Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	opts.Workers = 4
	calls := 0
	parallel, err := Run(context.Background(), opts, func(done, total int, r Result) {
		calls++
		if done != calls || total != 12 {
			t.Errorf("progress(%d, %d) on call %d", done, total, calls)
		}
	})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if len(serial) != 12 || len(parallel) != 12 || calls != 12 {
		t.Fatalf("results = %d/%d, progress calls = %d", len(serial), len(parallel), calls)
	}
	for i := range serial {
		a, b := serial[i], parallel[i]
		if a.Sample != b.Sample || a.Replicate != b.Replicate || a.Params != b.Params || a.Final != b.Final {
			t.Fatalf("result %d differs between worker counts:\n%+v\n%+v", i, a, b)
		}
	}
	if serial[0].Params.Strategy != wildfire.StrategyExtinguish || serial[2].Params.Strategy != wildfire.StrategyCutDown {
		t.Fatalf("results not ordered by strategy: %v, %v", serial[0].Params.Strategy, serial[2].Params.Strategy)
	}
	if serial[0].Seed != 3 || serial[1].Seed != 4 {
		t.Fatalf("replicate seeds = %d, %d", serial[0].Seed, serial[1].Seed)
	}

	sums := Summarize(serial)
	if len(sums) != 6 {
		t.Fatalf("summaries = %d, want 6", len(sums))
	}
	for _, s := range sums {
		if s.Runs != 2 || s.StdLost < 0 || math.IsNaN(s.StdBurnout) {
			t.Fatalf("bad summary %+v", s)
		}
		if s.MeanLost > 100 {
			t.Fatalf("mean loss %v above 100%%", s.MeanLost)
		}
	}
}

func TestRunRejectsBadShape(t *testing.T) {
	if _, err := Run(context.Background(), Options{Base: smallBase(), Samples: 0, Replicates: 1, Ticks: 1}, nil); err == nil {
		t.Fatal("expected an error for zero samples")
	}
	opts := Options{Base: smallBase(), Samples: 1, Replicates: 1, Ticks: 1, Strategies: []wildfire.StrategyKind{"wait"}}
	if _, err := Run(context.Background(), opts, nil); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := Options{Base: smallBase(), Samples: 4, Replicates: 4, Ticks: 10, Workers: 2}
	if _, err := Run(ctx, opts, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSummarizeSingleRunHasZeroSpread(t *testing.T) {
	sums := Summarize([]Result{{Sample: 0, Params: wildfire.Params{Strategy: wildfire.StrategyFirelines}, Final: wildfire.Metrics{PercentageLost: 12, BurnoutTime: 4}}})
	if len(sums) != 1 || sums[0].MeanLost != 12 || sums[0].StdLost != 0 || sums[0].MeanBurnout != 4 {
		t.Fatalf("summary = %+v", sums)
	}
}
