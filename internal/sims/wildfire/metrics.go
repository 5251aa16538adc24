package wildfire

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// State describes whether the fire can still evolve.
type State uint8

const (
	// StateActive means a tree burns or spontaneous ignition is possible.
	StateActive State = iota
	// StateDepleted means nothing burns and nothing can ignite again.
	StateDepleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDepleted:
		return "depleted"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*s = StateActive
	case "depleted":
		*s = StateDepleted
	default:
		return fmt.Errorf("wildfire: unknown state %q", b)
	}
	return nil
}

// Metrics is a per-tick snapshot of the world's aggregate statistics.
type Metrics struct {
	Tick           int     `json:"tick"`
	TotalDensity   float64 `json:"total_density"`
	AverageDensity float64 `json:"average_density"`
	OnFire         int     `json:"on_fire"`
	FractionOnFire float64 `json:"fraction_on_fire"`
	PercentageLost float64 `json:"percentage_lost"`
	ExtinguishCost int     `json:"extinguish_cost"`
	BurnCost       int     `json:"burn_cost"`
	CutDownCost    int     `json:"cut_down_cost"`
	TotalCost      int     `json:"total_cost"`
	BurnoutTime    int     `json:"burnout_time"`
	State          State   `json:"state"`
}

// Metrics returns the snapshot taken at the end of the last Reset or Step.
func (w *World) Metrics() Metrics { return w.metrics }

// Tick reports the number of completed ticks.
func (w *World) Tick() int { return w.sched.Tick() }

// TotalDensity sums the density of every tree.
func (w *World) TotalDensity() float64 {
	w.densities = w.densities[:0]
	for i := range w.trees {
		w.densities = append(w.densities, w.trees[i].Density)
	}
	return floats.Sum(w.densities)
}

// AverageDensity is TotalDensity over the tree count. It panics on a world
// without trees, which Reset never produces.
func (w *World) AverageDensity() float64 {
	return w.TotalDensity() / float64(w.treeCount())
}

// OnFire reports how many trees are burning.
func (w *World) OnFire() int { return w.burning }

// FractionOnFire is OnFire over the tree count.
func (w *World) FractionOnFire() float64 {
	return float64(w.burning) / float64(w.treeCount())
}

// PercentageLost compares the current total density with the snapshot taken
// at reset. It reports 0 when the forest started empty.
func (w *World) PercentageLost() float64 {
	if w.initialTotal == 0 {
		return 0
	}
	return (1 - w.TotalDensity()/w.initialTotal) * 100
}

// InitialTotalDensity reports the total density right after reset.
func (w *World) InitialTotalDensity() float64 { return w.initialTotal }

// Costs reports the committed action counters.
func (w *World) Costs() Costs { return w.costs }

// ExtinguishCost counts extinguish actions.
func (w *World) ExtinguishCost() int { return w.costs.Extinguish }

// BurnCost counts controlled burns.
func (w *World) BurnCost() int { return w.costs.Burn }

// CutDownCost counts cutting actions.
func (w *World) CutDownCost() int { return w.costs.CutDown }

// TotalCost sums every cost category.
func (w *World) TotalCost() int { return w.costs.Total() }

// BurnoutTime counts ticks that ended with at least one tree on fire.
func (w *World) BurnoutTime() int { return w.burnoutTime }

// State classifies the world as active or depleted.
func (w *World) State() State {
	if w.burning > 0 {
		return StateActive
	}
	if w.cfg.Params.IgnitionCoefficient == 0 || w.TotalDensity() == 0 {
		return StateDepleted
	}
	return StateActive
}

func (w *World) treeCount() int {
	if len(w.trees) == 0 {
		panic("wildfire: world has no trees")
	}
	return len(w.trees)
}

func (w *World) refresh() {
	total := w.TotalDensity()
	n := float64(w.treeCount())
	lost := 0.0
	if w.initialTotal != 0 {
		lost = (1 - total/w.initialTotal) * 100
	}
	w.metrics = Metrics{
		Tick:           w.sched.Tick(),
		TotalDensity:   total,
		AverageDensity: total / n,
		OnFire:         w.burning,
		FractionOnFire: float64(w.burning) / n,
		PercentageLost: lost,
		ExtinguishCost: w.costs.Extinguish,
		BurnCost:       w.costs.Burn,
		CutDownCost:    w.costs.CutDown,
		TotalCost:      w.costs.Total(),
		BurnoutTime:    w.burnoutTime,
		State:          w.State(),
	}
	w.rebuildDisplay()
}
