package sweep

import (
	"fmt"
	"math"
	"strconv"

	pcore "wildfire/pkg/core"

	"wildfire/internal/sims/wildfire"
)

// Bound is the sampling range of one configuration key. Integer bounds are
// drawn uniformly over the whole numbers in [Min, Max].
type Bound struct {
	Key     string
	Min     float64
	Max     float64
	Integer bool
}

// Problem lists the keys a sweep varies.
type Problem []Bound

// DefaultProblem varies fire spread, crew size, fire line margin, cut-down
// amount and response delay.
func DefaultProblem() Problem {
	return Problem{
		{Key: "spread_coefficient", Min: 0.1, Max: 0.4},
		{Key: "number_firefighters", Min: 1, Max: 20, Integer: true},
		{Key: "fire_line_margin", Min: 1, Max: 5, Integer: true},
		{Key: "cut_down_amount", Min: 100, Max: 555},
		{Key: "firefighter_response_delay", Min: 1, Max: 5, Integer: true},
	}
}

// Validate checks every bound against base: ranges must be ordered and every
// extreme must produce a valid configuration.
func (p Problem) Validate(base wildfire.Config) error {
	if len(p) == 0 {
		return fmt.Errorf("sweep: empty problem")
	}
	seen := map[string]bool{}
	for _, b := range p {
		if seen[b.Key] {
			return fmt.Errorf("sweep: key %q listed twice", b.Key)
		}
		seen[b.Key] = true
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return fmt.Errorf("sweep: bad range [%v, %v] for %q", b.Min, b.Max, b.Key)
		}
		for _, v := range []float64{b.Min, b.Max} {
			cfg := base
			if !wildfire.Apply(&cfg, b.Key, b.format(v)) {
				return fmt.Errorf("sweep: unknown key %q", b.Key)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("sweep: %s=%s: %w", b.Key, b.format(v), err)
			}
		}
	}
	return nil
}

// Sample is one point of the parameter space, aligned with its Problem.
type Sample struct {
	Index  int
	Values []float64
}

// Draw returns n samples drawn uniformly inside the bounds.
func (p Problem) Draw(rng *pcore.RNG, n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		vals := make([]float64, len(p))
		for j, b := range p {
			vals[j] = b.draw(rng)
		}
		out[i] = Sample{Index: i, Values: vals}
	}
	return out
}

// Apply writes the sample's values onto cfg.
func (p Problem) Apply(cfg *wildfire.Config, s Sample) error {
	if len(s.Values) != len(p) {
		return fmt.Errorf("sweep: sample has %d values for %d keys", len(s.Values), len(p))
	}
	for j, b := range p {
		if !wildfire.Apply(cfg, b.Key, b.format(s.Values[j])) {
			return fmt.Errorf("sweep: cannot set %s=%v", b.Key, s.Values[j])
		}
	}
	return nil
}

// Describe formats the sample as key=value pairs.
func (p Problem) Describe(s Sample) string {
	out := ""
	for j, b := range p {
		if j > 0 {
			out += " "
		}
		out += b.Key + "=" + b.format(s.Values[j])
	}
	return out
}

func (b Bound) draw(rng *pcore.RNG) float64 {
	if b.Integer {
		lo, hi := math.Ceil(b.Min), math.Floor(b.Max)
		if hi < lo {
			return lo
		}
		return lo + float64(rng.IntN(int(hi-lo)+1))
	}
	return b.Min + rng.Float64()*(b.Max-b.Min)
}

func (b Bound) format(v float64) string {
	if b.Integer {
		return strconv.Itoa(int(math.Round(v)))
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
