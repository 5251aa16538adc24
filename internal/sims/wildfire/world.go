package wildfire

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"wildfire/internal/core"
	pcore "wildfire/pkg/core"
)

// World is a forest on a bounded grid with fire and firefighters. It is not
// safe for concurrent use.
type World struct {
	cfg     Config
	pending Config

	w, h int

	grid         *Grid
	trees        []Tree
	firefighters []Firefighter
	strategy     Strategy
	sched        *Scheduler
	edges        *FireEdgeTracker
	effects      Effects
	costs        Costs
	view         *View

	rng            *pcore.RNG
	extinguishDist distuv.Beta

	burning      int
	ignited      bool
	initialTotal float64
	burnoutTime  int
	metrics      Metrics

	display   *core.ByteGrid
	densities []float64
	nbuf      []Pos
}

// New returns a wildfire world with the provided dimensions using defaults.
func New(w, h int) (*World, error) {
	cfg := DefaultConfig()
	cfg.Width = w
	cfg.Height = h
	return NewWithConfig(cfg)
}

// NewWithConfig validates cfg and returns a world already reset with cfg.Seed.
func NewWithConfig(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:     cfg,
		pending: cfg,
		w:       cfg.Width,
		h:       cfg.Height,
		grid:    NewGrid(cfg.Width, cfg.Height, cfg.Params.Neighborhood),
		sched:   NewScheduler(cfg.Params.ResponseDelay),
		edges:   NewFireEdgeTracker(),
		rng:     pcore.NewRNG(cfg.Seed),
		display: core.NewByteGrid(cfg.Width, cfg.Height),
	}
	w.view = &View{w: w}
	w.Reset(cfg.Seed)
	return w, nil
}

// Name returns the simulation identifier.
func (w *World) Name() string { return "wildfire" }

// Size reports the grid dimensions.
func (w *World) Size() core.Size { return core.Size{W: w.w, H: w.h} }

// Cells exposes the display buffer.
func (w *World) Cells() []uint8 { return w.display.Cells() }

// Config returns the configuration of the current run.
func (w *World) Config() Config { return w.cfg }

// Grid exposes the cell layout.
func (w *World) Grid() *Grid { return w.grid }

// Trees exposes the tree arena. Callers must treat it as read-only.
func (w *World) Trees() []Tree { return w.trees }

// Firefighters exposes the firefighter arena. Callers must treat it as
// read-only.
func (w *World) Firefighters() []Firefighter { return w.firefighters }

// Strategy reports the firefighter strategy of the current run.
func (w *World) Strategy() StrategyKind { return w.strategy.Kind() }

// FireEdges returns the current bounding box of burning trees. It leaves the
// firefighters' cached box untouched.
func (w *World) FireEdges() (Rect, bool) {
	var fresh FireEdgeTracker
	return fresh.Recalculate(w.sched.Tick(), w.trees)
}

// Reset rebuilds terrain, trees and firefighters from seed. Every seed,
// including zero, is used as given. Parameters edited since the last reset
// take effect here.
func (w *World) Reset(seed int64) {
	w.cfg.Params = w.pending.Params
	p := w.cfg.Params

	w.rng.Reseed(seed)
	w.extinguishDist = newExtinguishDist(p, w.rng)
	w.grid = NewGrid(w.w, w.h, p.Neighborhood)
	w.sched.Reset(p.ResponseDelay)
	w.edges.Invalidate()
	w.effects = Effects{}
	w.costs = Costs{}
	w.burning = 0
	w.burnoutTime = 0
	w.trees = w.trees[:0]
	w.firefighters = w.firefighters[:0]

	strategy, err := NewStrategy(p.Strategy, p)
	if err != nil {
		panic(fmt.Sprintf("wildfire: reset with unvalidated params: %v", err))
	}
	w.strategy = strategy

	w.sprinkleTerrain()
	w.plantTrees()
	w.setOnFire(TreeID(w.rng.IntN(len(w.trees))), true)
	w.placeFirefighters()

	w.initialTotal = w.TotalDensity()
	w.refresh()
}

// Step advances the world by one tick. The tick counts towards burnout time
// when a tree burned at any point during it, including a fire that went out
// before the tick ended.
func (w *World) Step() {
	burned := w.burning > 0
	w.ignited = false
	w.sched.Step(w.rng, w.stepTree, w.stepFirefighter)
	w.costs = w.costs.Add(w.effects.Commit())
	if burned || w.ignited {
		w.burnoutTime++
	}
	w.edges.Invalidate()
	w.refresh()
}

// Run steps the world n times and returns the final metrics.
func (w *World) Run(n int) Metrics {
	for i := 0; i < n; i++ {
		w.Step()
	}
	return w.metrics
}

func (w *World) sprinkleTerrain() {
	p := w.cfg.Params
	total := w.grid.Len()
	if p.WaterChance+p.RoadChance > 0 {
		for i := 0; i < total; i++ {
			u := w.rng.Float64()
			switch {
			case u < p.WaterChance:
				w.grid.At(w.grid.PosOf(i)).Terrain = TerrainWater
			case u < p.WaterChance+p.RoadChance:
				w.grid.At(w.grid.PosOf(i)).Terrain = TerrainRoad
			}
		}
	}
	for i := 0; i < total; i++ {
		if w.grid.At(w.grid.PosOf(i)).Terrain == TerrainVegetated {
			return
		}
	}
	w.grid.At(w.grid.PosOf(w.rng.IntN(total))).Terrain = TerrainVegetated
}

func (w *World) plantTrees() {
	p := w.cfg.Params
	dist := distuv.Beta{Alpha: p.DensityAlpha, Beta: p.DensityBeta, Src: w.rng.Source()}
	for i := 0; i < w.grid.Len(); i++ {
		pos := w.grid.PosOf(i)
		cell := w.grid.At(pos)
		if cell.Terrain != TerrainVegetated {
			continue
		}
		var frac float64
		switch p.DensityDist {
		case DensityUniform:
			frac = p.DensityLower + (p.DensityUpper-p.DensityLower)*w.rng.Float64()
		default:
			frac = dist.Rand()
		}
		id := TreeID(len(w.trees))
		w.trees = append(w.trees, Tree{Pos: pos, Density: clampDensity(frac*p.MaxDensity, p.MaxDensity), caughtAt: -1})
		cell.Tree = id
		w.sched.AddTree(id)
	}
}

func (w *World) placeFirefighters() {
	for i := 0; i < w.cfg.Params.NumberFirefighters; i++ {
		id := FirefighterID(i)
		pos := Pos{X: w.rng.IntN(w.w), Y: w.rng.IntN(w.h)}
		w.firefighters = append(w.firefighters, Firefighter{Pos: pos})
		w.grid.PlaceFirefighter(id, pos)
		w.sched.AddFirefighter(id)
	}
}

// setOnFire flips a tree's fire flag and keeps the burning count in sync.
func (w *World) setOnFire(id TreeID, on bool) {
	t := &w.trees[id]
	if t.OnFire == on {
		return
	}
	t.OnFire = on
	if on {
		w.ignited = true
		w.burning++
	} else {
		w.burning--
	}
}

func init() {
	core.Register("wildfire", func(cfg map[string]string) (core.Sim, error) {
		w, err := NewWithConfig(FromMap(cfg))
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}
