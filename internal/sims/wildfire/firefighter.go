package wildfire

import (
	"gonum.org/v1/gonum/stat/distuv"

	"wildfire/pkg/core"
)

// Firefighter is a suppression agent. It moves by teleporting to the cell its
// strategy picks.
type Firefighter struct {
	Pos Pos
}

// View is the read side of the world handed to strategies.
type View struct {
	w *World
}

// Grid exposes the cell layout. Strategies must not modify it.
func (v *View) Grid() *Grid { return v.w.grid }

// Tree returns a copy of the tree with the given id.
func (v *View) Tree(id TreeID) Tree { return v.w.trees[id] }

// Position reports where a firefighter stands.
func (v *View) Position(id FirefighterID) Pos { return v.w.firefighters[id].Pos }

// Params returns the run parameters.
func (v *View) Params() Params { return v.w.cfg.Params }

// Load normalises an absolute density into [0, 1].
func (v *View) Load(density float64) float64 { return v.w.load(density) }

// Burning reports how many trees are on fire right now.
func (v *View) Burning() int { return v.w.burning }

// FractionOnFire reports Burning over the tree count.
func (v *View) FractionOnFire() float64 { return v.w.FractionOnFire() }

// BurningTrees appends the ids of burning trees in id order.
func (v *View) BurningTrees(buf []TreeID) []TreeID {
	for i := range v.w.trees {
		if v.w.trees[i].OnFire {
			buf = append(buf, TreeID(i))
		}
	}
	return buf
}

// Densest returns the id of the densest tree accepted by keep, or NoTree.
// Ties go to the lowest id.
func (v *View) Densest(keep func(TreeID, Tree) bool) TreeID {
	best := NoTree
	for i := range v.w.trees {
		id := TreeID(i)
		t := v.w.trees[i]
		if !keep(id, t) {
			continue
		}
		if best == NoTree || t.Density > v.w.trees[best].Density {
			best = id
		}
	}
	return best
}

// FireEdges returns the bounding box of burning trees cached for this tick.
func (v *View) FireEdges() (Rect, bool) {
	return v.w.edges.Edges(v.w.sched.Tick(), v.w.trees)
}

// RecalculateFireEdges forces the bounding box to be rebuilt.
func (v *View) RecalculateFireEdges() (Rect, bool) {
	return v.w.edges.Recalculate(v.w.sched.Tick(), v.w.trees)
}

// RNG exposes the run's random stream.
func (v *View) RNG() *core.RNG { return v.w.rng }

// ExtinguishDraw samples Beta(1, difficulty) scaled to absolute density.
// Harder fires give smaller draws.
func (v *View) ExtinguishDraw() float64 {
	return v.w.extinguishDist.Rand() * v.w.cfg.Params.MaxDensity
}

func newExtinguishDist(p Params, rng *core.RNG) distuv.Beta {
	return distuv.Beta{Alpha: 1, Beta: p.ExtinguishDifficulty, Src: rng.Source()}
}

// stepFirefighter asks the strategy for a decision and applies it.
func (w *World) stepFirefighter(id FirefighterID) {
	w.apply(id, w.strategy.Decide(w.view, id))
}

func (w *World) apply(id FirefighterID, d Decision) {
	if d.Move && w.grid.InBounds(d.MoveTo) {
		ff := &w.firefighters[id]
		w.grid.MoveFirefighter(id, ff.Pos, d.MoveTo)
		ff.Pos = d.MoveTo
	}
	for _, m := range d.Mutations {
		if m.Tree < 0 || int(m.Tree) >= len(w.trees) {
			continue
		}
		switch m.Kind {
		case MutationExtinguish:
			w.setOnFire(m.Tree, false)
		case MutationIgnite:
			w.setOnFire(m.Tree, true)
		case MutationCut:
			t := &w.trees[m.Tree]
			t.Density = max(0, t.Density-m.Amount)
		}
	}
	w.effects.Record(d.Costs)
}

// Effects accumulates the costs booked during one firefighter pass.
type Effects struct {
	pending Costs
}

// Record adds c to the pending ledger.
func (e *Effects) Record(c Costs) { e.pending = e.pending.Add(c) }

// Commit returns the pending costs and clears the ledger.
func (e *Effects) Commit() Costs {
	c := e.pending
	e.pending = Costs{}
	return c
}
