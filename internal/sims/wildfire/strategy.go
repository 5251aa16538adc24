package wildfire

import (
	"fmt"
	"slices"
)

// StrategyKind names a firefighter behaviour.
type StrategyKind string

const (
	StrategyExtinguish  StrategyKind = "extinguish"
	StrategyFirelines   StrategyKind = "firelines"
	StrategyBurnDown    StrategyKind = "burn-down"
	StrategyCutDown     StrategyKind = "cut-down"
	StrategyIntelligent StrategyKind = "intelligent"
)

// StrategyKinds lists every supported strategy.
func StrategyKinds() []StrategyKind {
	return []StrategyKind{StrategyExtinguish, StrategyFirelines, StrategyBurnDown, StrategyCutDown, StrategyIntelligent}
}

// Costs counts the actions firefighters have taken.
type Costs struct {
	Extinguish int
	Burn       int
	CutDown    int
}

// Add returns the element-wise sum.
func (c Costs) Add(o Costs) Costs {
	return Costs{Extinguish: c.Extinguish + o.Extinguish, Burn: c.Burn + o.Burn, CutDown: c.CutDown + o.CutDown}
}

// Total sums every category.
func (c Costs) Total() int { return c.Extinguish + c.Burn + c.CutDown }

// MutationKind enumerates the changes a firefighter can make to a tree.
type MutationKind uint8

const (
	MutationExtinguish MutationKind = iota
	MutationIgnite
	MutationCut
)

// Mutation is one requested tree change. Amount applies to MutationCut only.
type Mutation struct {
	Kind   MutationKind
	Tree   TreeID
	Amount float64
}

// Decision is what a strategy wants done this activation. The world applies
// the move and mutations right away and books Costs in the tick's ledger.
type Decision struct {
	Mutations []Mutation
	Costs     Costs
	MoveTo    Pos
	Move      bool
}

// Strategy decides one firefighter activation.
type Strategy interface {
	Kind() StrategyKind
	Decide(v *View, self FirefighterID) Decision
}

// NewStrategy builds the strategy named by kind from p.
func NewStrategy(kind StrategyKind, p Params) (Strategy, error) {
	ext := extinguish{radius: p.ExtinguishRadius, always: p.ExtinguishAlways}
	switch kind {
	case StrategyExtinguish:
		return ext, nil
	case StrategyFirelines:
		return firelines{margin: p.FireLineMargin, amount: p.CutDownAmount}, nil
	case StrategyBurnDown:
		return burnDown{threshold: p.BurnThreshold}, nil
	case StrategyCutDown:
		return cutDown{amount: p.CutDownAmount}, nil
	case StrategyIntelligent:
		return intelligent{
			threshold:  p.IntelligentThreshold,
			extinguish: ext,
			cut:        cutDown{amount: p.CutDownAmount},
			burn:       burnDown{threshold: p.BurnThreshold},
		}, nil
	}
	return nil, invalid("unknown firefighter_strategy %q (want one of %v)", kind, StrategyKinds())
}

// ParseStrategyKind validates s against the known strategies.
func ParseStrategyKind(s string) (StrategyKind, error) {
	k := StrategyKind(s)
	if !slices.Contains(StrategyKinds(), k) {
		return "", fmt.Errorf("%w: unknown firefighter_strategy %q", ErrInvalidConfig, s)
	}
	return k, nil
}

// extinguish teleports to a random burning tree and puts out fires around it.
type extinguish struct {
	radius int
	always bool
}

func (extinguish) Kind() StrategyKind { return StrategyExtinguish }

func (e extinguish) Decide(v *View, self FirefighterID) Decision {
	if v.Burning() == 0 {
		return Decision{}
	}
	burning := v.BurningTrees(nil)
	target := v.Tree(burning[v.RNG().IntN(len(burning))]).Pos

	d := Decision{MoveTo: target, Move: true}
	for _, p := range v.Grid().Within(target, e.radius, nil) {
		id := v.Grid().TreeAt(p)
		if id == NoTree || !v.Tree(id).OnFire {
			continue
		}
		if e.always {
			d.Mutations = append(d.Mutations, Mutation{Kind: MutationExtinguish, Tree: id})
			continue
		}
		if v.ExtinguishDraw() > v.Tree(id).Density {
			d.Mutations = append(d.Mutations, Mutation{Kind: MutationExtinguish, Tree: id})
			d.Costs.Extinguish++
		}
	}
	if e.always {
		d.Costs.Extinguish = 1
	}
	return d
}

// firelines clears fuel along the rectangle that encloses the fire plus a
// margin.
type firelines struct {
	margin int
	amount float64
}

func (firelines) Kind() StrategyKind { return StrategyFirelines }

func (f firelines) Decide(v *View, self FirefighterID) Decision {
	if v.Burning() == 0 {
		return Decision{}
	}
	box, found := v.FireEdges()
	if !found {
		v.RecalculateFireEdges()
		return Decision{}
	}
	g := v.Grid()
	best := NoTree
	for _, p := range box.Expand(f.margin).Clamp(g.Width(), g.Height()).Perimeter(nil) {
		id := g.TreeAt(p)
		if id == NoTree || v.Tree(id).Density <= 0 {
			continue
		}
		if best == NoTree || v.Tree(id).Density > v.Tree(best).Density {
			best = id
		}
	}
	if best == NoTree {
		v.RecalculateFireEdges()
		return Decision{}
	}
	return Decision{
		Mutations: []Mutation{{Kind: MutationCut, Tree: best, Amount: f.amount}},
		Costs:     Costs{CutDown: 1},
		MoveTo:    v.Tree(best).Pos,
		Move:      true,
	}
}

// burnDown sets a controlled fire in the densest stand above the threshold.
type burnDown struct {
	threshold float64
}

func (burnDown) Kind() StrategyKind { return StrategyBurnDown }

func (b burnDown) Decide(v *View, self FirefighterID) Decision {
	id := b.pick(v, NoTree)
	if id == NoTree {
		return Decision{}
	}
	return Decision{
		Mutations: []Mutation{{Kind: MutationIgnite, Tree: id}},
		Costs:     Costs{Burn: 1},
		MoveTo:    v.Tree(id).Pos,
		Move:      true,
	}
}

func (b burnDown) pick(v *View, skip TreeID) TreeID {
	return v.Densest(func(id TreeID, t Tree) bool {
		return id != skip && !t.OnFire && v.Load(t.Density) > b.threshold
	})
}

// cutDown removes fuel from the densest tree on the map.
type cutDown struct {
	amount float64
}

func (cutDown) Kind() StrategyKind { return StrategyCutDown }

func (c cutDown) Decide(v *View, self FirefighterID) Decision {
	id := c.pick(v)
	if id == NoTree {
		return Decision{}
	}
	return Decision{
		Mutations: []Mutation{{Kind: MutationCut, Tree: id, Amount: c.amount}},
		Costs:     Costs{CutDown: 1},
		MoveTo:    v.Tree(id).Pos,
		Move:      true,
	}
}

func (c cutDown) pick(v *View) TreeID {
	return v.Densest(func(_ TreeID, t Tree) bool { return t.Density > 0 })
}

// intelligent fights large fires directly and otherwise thins the forest by
// cutting and burning its densest stands.
type intelligent struct {
	threshold  float64
	extinguish extinguish
	cut        cutDown
	burn       burnDown
}

func (intelligent) Kind() StrategyKind { return StrategyIntelligent }

func (s intelligent) Decide(v *View, self FirefighterID) Decision {
	if v.FractionOnFire() > s.threshold {
		return s.extinguish.Decide(v, self)
	}
	var d Decision
	cut := s.cut.pick(v)
	if cut != NoTree {
		d.Mutations = append(d.Mutations, Mutation{Kind: MutationCut, Tree: cut, Amount: s.cut.amount})
		d.Costs.CutDown++
		d.MoveTo, d.Move = v.Tree(cut).Pos, true
	}
	if burn := s.burn.pick(v, cut); burn != NoTree {
		d.Mutations = append(d.Mutations, Mutation{Kind: MutationIgnite, Tree: burn})
		d.Costs.Burn++
		if !d.Move {
			d.MoveTo, d.Move = v.Tree(burn).Pos, true
		}
	}
	return d
}
