package wildfire

import (
	"errors"
	"testing"
)

func TestCutClampsAtZero(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.2)
	id := TreeID(0)
	start := w.trees[id].Density

	w.apply(0, Decision{Mutations: []Mutation{{Kind: MutationCut, Tree: id, Amount: 10}}})
	if got := w.trees[id].Density; got != start-10 {
		t.Fatalf("density after partial cut = %v, want %v", got, start-10)
	}
	w.apply(0, Decision{Mutations: []Mutation{{Kind: MutationCut, Tree: id, Amount: 1e6}}})
	if got := w.trees[id].Density; got != 0 {
		t.Fatalf("density after oversized cut = %v, want 0", got)
	}
}

func TestExtinguishDecisionNoFire(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.5)
	d := extinguish{radius: 1}.Decide(w.view, 0)
	if d.Move || len(d.Mutations) != 0 || d.Costs != (Costs{}) {
		t.Fatalf("extinguish with no fire decided %+v", d)
	}
}

func TestExtinguishAlwaysPutsOutNeighborhood(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.5)
	// Adjacent fires: whichever one is picked, the other is within radius 1.
	igniteAt(t, w, Pos{X: 5, Y: 5})
	igniteAt(t, w, Pos{X: 6, Y: 5})

	d := extinguish{radius: 1, always: true}.Decide(w.view, 0)
	if !d.Move {
		t.Fatal("expected the firefighter to move to the fire")
	}
	if d.Costs.Extinguish != 1 {
		t.Fatalf("deterministic extinguish cost = %d, want flat 1", d.Costs.Extinguish)
	}
	w.apply(0, d)
	if w.OnFire() != 0 {
		t.Fatalf("fires left after extinguishing a radius-1 block: %d", w.OnFire())
	}
	if w.firefighters[0].Pos != d.MoveTo {
		t.Fatalf("firefighter at %+v, want %+v", w.firefighters[0].Pos, d.MoveTo)
	}
}

func TestExtinguishRadiusZeroTouchesOneCell(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.5)
	igniteAt(t, w, Pos{X: 5, Y: 5})
	igniteAt(t, w, Pos{X: 6, Y: 5})

	d := extinguish{radius: 0, always: true}.Decide(w.view, 0)
	if len(d.Mutations) != 1 {
		t.Fatalf("radius 0 produced %d mutations, want 1", len(d.Mutations))
	}
	if w.trees[d.Mutations[0].Tree].Pos != d.MoveTo {
		t.Fatal("radius 0 should only touch the target cell")
	}
}

func TestExtinguishStochasticCostsPerTree(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0)
	// Zero-density fires always lose to a positive draw.
	for _, p := range w.grid.Within(Pos{X: 5, Y: 5}, 1, nil) {
		igniteAt(t, w, p)
	}
	d := extinguish{radius: 1}.Decide(w.view, 0)
	if d.Costs.Extinguish != len(d.Mutations) || len(d.Mutations) == 0 {
		t.Fatalf("stochastic extinguish: %d mutations, cost %d", len(d.Mutations), d.Costs.Extinguish)
	}
}

func TestFirelinesIdleUntilEdgesRecalculated(t *testing.T) {
	cfg := testConfig()
	cfg.Params.Strategy = StrategyFirelines
	cfg.Params.IgnitionCoefficient = 0
	cfg.Params.BurnDecay = 0.2
	w := mustWorld(t, cfg)
	uniformForest(w, 0.4)

	for i := 0; i < 10; i++ {
		w.Step()
	}
	if c := w.CutDownCost(); c != 0 {
		t.Fatalf("firelines cut %d times with no fire", c)
	}
	if _, ok := w.FireEdges(); ok {
		t.Fatal("fire edges found with nothing burning")
	}

	igniteAt(t, w, Pos{X: 10, Y: 10})
	box, ok := w.view.RecalculateFireEdges()
	if !ok || box != (Rect{MinX: 10, MinY: 10, MaxX: 10, MaxY: 10}) {
		t.Fatalf("forced recalculation = %+v, %v", box, ok)
	}
	w.Step()
	if got, want := w.CutDownCost(), cfg.Params.NumberFirefighters; got != want {
		t.Fatalf("cut-down cost after ignition = %d, want %d", got, want)
	}
	for _, ff := range w.Firefighters() {
		dx, dy := ff.Pos.X-10, ff.Pos.Y-10
		if max(abs(dx), abs(dy)) != cfg.Params.FireLineMargin+1 && max(abs(dx), abs(dy)) != cfg.Params.FireLineMargin {
			t.Fatalf("firefighter at %+v is not on the fire line", ff.Pos)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestBurnDownIgnitesDensestAboveThreshold(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.4)
	s := burnDown{threshold: 0.5}
	if d := s.Decide(w.view, 0); len(d.Mutations) != 0 {
		t.Fatalf("burn-down ignited below the threshold: %+v", d)
	}

	target := w.grid.TreeAt(Pos{X: 3, Y: 4})
	w.trees[target].Density = 0.9 * w.cfg.Params.MaxDensity
	d := s.Decide(w.view, 0)
	if len(d.Mutations) != 1 || d.Mutations[0].Tree != target || d.Mutations[0].Kind != MutationIgnite {
		t.Fatalf("burn-down decision = %+v, want ignite tree %d", d, target)
	}
	if d.Costs != (Costs{Burn: 1}) {
		t.Fatalf("burn-down costs = %+v", d.Costs)
	}
}

func TestCutDownPicksDensest(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.3)
	target := w.grid.TreeAt(Pos{X: 7, Y: 2})
	w.trees[target].Density = 500

	d := cutDown{amount: 100}.Decide(w.view, 0)
	if len(d.Mutations) != 1 || d.Mutations[0].Tree != target || d.Mutations[0].Amount != 100 {
		t.Fatalf("cut-down decision = %+v, want cut tree %d", d, target)
	}
	if d.MoveTo != (Pos{X: 7, Y: 2}) {
		t.Fatalf("cut-down moved to %+v", d.MoveTo)
	}
}

func TestIntelligentSwitchesOnFireFraction(t *testing.T) {
	w := mustWorld(t, testConfig())
	uniformForest(w, 0.8)
	igniteAt(t, w, Pos{X: 1, Y: 1})
	s, err := NewStrategy(StrategyIntelligent, w.cfg.Params)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	d := s.Decide(w.view, 0)
	if d.Costs != (Costs{CutDown: 1, Burn: 1}) {
		t.Fatalf("small fire: intelligent costs = %+v, want one cut and one burn", d.Costs)
	}
	if d.Mutations[0].Tree == d.Mutations[1].Tree {
		t.Fatal("intelligent should cut and burn different trees")
	}

	for _, p := range w.grid.Within(Pos{X: 10, Y: 10}, 2, nil) {
		igniteAt(t, w, p)
	}
	d = s.Decide(w.view, 0)
	if d.Costs.Burn != 0 || d.Costs.CutDown != 0 {
		t.Fatalf("large fire: intelligent should extinguish, got %+v", d.Costs)
	}
	if !d.Move || w.grid.TreeAt(d.MoveTo) == NoTree || !w.trees[w.grid.TreeAt(d.MoveTo)].OnFire {
		t.Fatalf("large fire: expected a move onto a burning tree, got %+v", d)
	}
}

func TestNewStrategyRejectsUnknown(t *testing.T) {
	if _, err := NewStrategy("water-bomber", DefaultConfig().Params); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewStrategy error = %v, want ErrInvalidConfig", err)
	}
	for _, k := range StrategyKinds() {
		s, err := NewStrategy(k, DefaultConfig().Params)
		if err != nil {
			t.Fatalf("NewStrategy(%s): %v", k, err)
		}
		if s.Kind() != k {
			t.Fatalf("Kind() = %s, want %s", s.Kind(), k)
		}
	}
	if _, err := ParseStrategyKind("firelines"); err != nil {
		t.Fatalf("ParseStrategyKind: %v", err)
	}
}

func TestEffectsCommitClears(t *testing.T) {
	var e Effects
	e.Record(Costs{Extinguish: 2})
	e.Record(Costs{Burn: 1, CutDown: 3})
	if got := e.Commit(); got != (Costs{Extinguish: 2, Burn: 1, CutDown: 3}) || got.Total() != 6 {
		t.Fatalf("Commit() = %+v", got)
	}
	if got := e.Commit(); got != (Costs{}) {
		t.Fatalf("second Commit() = %+v, want zero", got)
	}
}
