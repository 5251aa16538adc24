package wildfire

import (
	"slices"
	"testing"

	"wildfire/internal/core"
	pcore "wildfire/pkg/core"
)

func TestNeighborsRespectBounds(t *testing.T) {
	g := NewGrid(4, 3, NeighborhoodMoore)
	cases := []struct {
		p    Pos
		want int
	}{
		{Pos{0, 0}, 3},
		{Pos{3, 2}, 3},
		{Pos{1, 0}, 5},
		{Pos{1, 1}, 8},
	}
	for _, tc := range cases {
		if got := len(g.Neighbors(tc.p, nil)); got != tc.want {
			t.Fatalf("Neighbors(%+v) = %d cells, want %d", tc.p, got, tc.want)
		}
	}
	vn := NewGrid(4, 3, NeighborhoodVonNeumann)
	if got := len(vn.Neighbors(Pos{0, 0}, nil)); got != 2 {
		t.Fatalf("von Neumann corner neighbours = %d, want 2", got)
	}
}

func TestWithinChebyshev(t *testing.T) {
	g := NewGrid(5, 5, NeighborhoodMoore)
	if got := len(g.Within(Pos{2, 2}, 1, nil)); got != 9 {
		t.Fatalf("radius 1 = %d cells, want 9", got)
	}
	if got := g.Within(Pos{0, 0}, 0, nil); !slices.Equal(got, []Pos{{0, 0}}) {
		t.Fatalf("radius 0 = %v", got)
	}
	if got := len(g.Within(Pos{0, 4}, 1, nil)); got != 4 {
		t.Fatalf("corner radius 1 = %d cells, want 4", got)
	}
}

func TestMoveFirefighter(t *testing.T) {
	g := NewGrid(3, 3, NeighborhoodMoore)
	g.PlaceFirefighter(1, Pos{0, 0})
	g.PlaceFirefighter(2, Pos{0, 0})
	g.MoveFirefighter(1, Pos{0, 0}, Pos{2, 2})
	if got := g.At(Pos{0, 0}).Firefighters; !slices.Equal(got, []FirefighterID{2}) {
		t.Fatalf("origin occupants = %v, want [2]", got)
	}
	if got := g.At(Pos{2, 2}).Firefighters; !slices.Equal(got, []FirefighterID{1}) {
		t.Fatalf("target occupants = %v, want [1]", got)
	}
	if g.TreeAt(Pos{5, 5}) != NoTree {
		t.Fatal("out-of-range lookups should report NoTree")
	}
}

func TestRectPerimeter(t *testing.T) {
	cases := []struct {
		r    Rect
		want int
	}{
		{Rect{0, 0, 2, 2}, 8},
		{Rect{1, 1, 1, 1}, 1},
		{Rect{0, 0, 0, 2}, 3},
		{Rect{0, 0, 4, 1}, 10},
		{Rect{3, 3, 2, 2}, 0},
	}
	for _, tc := range cases {
		got := tc.r.Perimeter(nil)
		if len(got) != tc.want {
			t.Fatalf("Perimeter(%+v) = %d cells, want %d", tc.r, len(got), tc.want)
		}
		seen := map[Pos]bool{}
		for _, p := range got {
			if seen[p] {
				t.Fatalf("Perimeter(%+v) repeats %+v", tc.r, p)
			}
			seen[p] = true
		}
	}
	clamped := Rect{2, 2, 2, 2}.Expand(5).Clamp(6, 4)
	if clamped != (Rect{0, 0, 5, 3}) {
		t.Fatalf("clamped = %+v", clamped)
	}
}

func TestFireEdgeTrackerStamps(t *testing.T) {
	trees := []Tree{
		{Pos: Pos{1, 4}, OnFire: true},
		{Pos: Pos{6, 2}, OnFire: true},
		{Pos: Pos{3, 3}},
	}
	f := NewFireEdgeTracker()
	box, ok := f.Edges(0, trees)
	if !ok || box != (Rect{MinX: 1, MinY: 2, MaxX: 6, MaxY: 4}) {
		t.Fatalf("Edges = %+v, %v", box, ok)
	}

	trees[0].OnFire = false
	if box, _ := f.Edges(0, trees); box.MinX != 1 {
		t.Fatal("same-tick lookup should reuse the cached box")
	}
	if box, _ := f.Edges(1, trees); box != (Rect{MinX: 6, MinY: 2, MaxX: 6, MaxY: 2}) {
		t.Fatalf("new tick should recompute, got %+v", box)
	}

	trees[1].OnFire = false
	if _, ok := f.Recalculate(1, trees); ok {
		t.Fatal("forced recalculation should see that nothing burns")
	}
	f.Invalidate()
	if f.Stamp() != -1 {
		t.Fatalf("stamp after Invalidate = %d", f.Stamp())
	}
}

func TestSchedulerOrderAndDelay(t *testing.T) {
	s := NewScheduler(2)
	for i := 0; i < 20; i++ {
		s.AddTree(TreeID(i))
	}
	for i := 0; i < 5; i++ {
		s.AddFirefighter(FirefighterID(i))
	}
	rng := pcore.NewRNG(3)

	var orders [][]TreeID
	for tick := 0; tick < 4; tick++ {
		var trees []TreeID
		var ffs []FirefighterID
		s.Step(rng,
			func(id TreeID) {
				if len(ffs) > 0 {
					t.Fatal("a tree ran after a firefighter")
				}
				trees = append(trees, id)
			},
			func(id FirefighterID) { ffs = append(ffs, id) },
		)
		if len(trees) != 20 {
			t.Fatalf("tick %d: %d tree activations, want 20", tick, len(trees))
		}
		wantFF := 5
		if tick < 2 {
			wantFF = 0
		}
		if len(ffs) != wantFF {
			t.Fatalf("tick %d: %d firefighter activations, want %d", tick, len(ffs), wantFF)
		}
		sorted := slices.Clone(trees)
		slices.Sort(sorted)
		for i, id := range sorted {
			if id != TreeID(i) {
				t.Fatalf("tick %d: tree activations are not a permutation: %v", tick, trees)
			}
		}
		orders = append(orders, trees)
	}
	if s.Tick() != 4 {
		t.Fatalf("Tick() = %d, want 4", s.Tick())
	}
	allSame := true
	for _, o := range orders[1:] {
		if !slices.Equal(o, orders[0]) {
			allSame = false
		}
	}
	if allSame {
		t.Fatal("activation order never changed between ticks")
	}
}

func TestRegisteredInCore(t *testing.T) {
	sim, err := core.Build("wildfire", map[string]string{"w": "12", "h": "8", "number_firefighters": "2"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := sim.Size(); got != (core.Size{W: 12, H: 8}) {
		t.Fatalf("Size() = %+v", got)
	}
	if len(sim.Cells()) != 12*8 {
		t.Fatalf("Cells() length = %d", len(sim.Cells()))
	}
	if _, err := core.Build("wildfire", map[string]string{"burn_decay": "4"}); err == nil {
		t.Fatal("expected an invalid config to be rejected")
	}
}
