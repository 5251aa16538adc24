package wildfire

import "math"

// Tree is a fuel cell. Density is the absolute fuel load in [0, MaxDensity].
type Tree struct {
	Pos     Pos
	Density float64
	OnFire  bool

	// caughtAt is the tick on which spread last ignited the tree, or -1.
	caughtAt int
}

// seasonal maps a tick onto a yearly cycle in [0, 1].
func seasonal(tick int) float64 {
	return (math.Sin(2*math.Pi*float64(tick)/365) + 1) / 2
}

func (w *World) load(density float64) float64 {
	return density / w.cfg.Params.MaxDensity
}

func (w *World) ignitionProbability(density float64, tick int) float64 {
	p := w.cfg.Params
	f := w.load(density)
	var prob float64
	switch p.IgnitionLaw {
	case IgnitionSeasonal:
		prob = f * f * p.IgnitionCoefficient * seasonal(tick)
	default:
		prob = f * p.IgnitionCoefficient
	}
	return min(prob, 1)
}

// stepTree applies ignition, burning with spread and burnout, or regrowth to
// one tree. A tree caught by spread on this tick waits until the next one.
func (w *World) stepTree(id TreeID) {
	p := w.cfg.Params
	tick := w.sched.Tick()
	t := &w.trees[id]

	if !t.OnFire && w.rng.Chance(w.ignitionProbability(t.Density, tick)) {
		w.setOnFire(id, true)
	}

	if t.OnFire {
		if t.caughtAt == tick {
			return
		}
		t.Density -= t.Density * p.BurnDecay
		if p.BurnDecay >= 1 || t.Density < 0 {
			t.Density = 0
		}

		w.nbuf = w.grid.Neighbors(t.Pos, w.nbuf[:0])
		for _, np := range w.nbuf {
			nid := w.grid.TreeAt(np)
			if nid == NoTree || w.trees[nid].OnFire {
				continue
			}
			chance := min(w.load(w.trees[nid].Density)*p.SpreadCoefficient, 1)
			if w.rng.Chance(chance) {
				w.setOnFire(nid, true)
				w.trees[nid].caughtAt = tick
			}
		}

		if p.BurnDecay >= 1 || w.load(t.Density) < p.BurnoutThreshold {
			w.setOnFire(id, false)
		}
		return
	}

	growth := t.Density * (1 - w.load(t.Density)) * p.GrowthRate
	if p.SeasonalGrowth {
		growth *= seasonal(tick)
	}
	t.Density = clampDensity(t.Density+growth, p.MaxDensity)
}

func clampDensity(d, maxDensity float64) float64 {
	if d < 0 {
		return 0
	}
	if d > maxDensity {
		return maxDensity
	}
	return d
}
