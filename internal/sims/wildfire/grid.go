package wildfire

// Terrain tags a cell. Only vegetated cells receive a tree at reset; the other
// tags carry no behaviour.
type Terrain uint8

const (
	TerrainVegetated Terrain = iota
	TerrainWater
	TerrainRoad
)

func (t Terrain) String() string {
	switch t {
	case TerrainVegetated:
		return "vegetated"
	case TerrainWater:
		return "water"
	case TerrainRoad:
		return "road"
	}
	return "unknown"
}

// Pos addresses a cell. The origin is the top-left corner.
type Pos struct {
	X, Y int
}

// TreeID indexes the world's tree arena.
type TreeID int

// NoTree marks a cell without a tree.
const NoTree TreeID = -1

// FirefighterID indexes the world's firefighter arena.
type FirefighterID int

// Cell is one grid location. It holds at most one tree and any number of
// firefighters.
type Cell struct {
	Terrain      Terrain
	Tree         TreeID
	Firefighters []FirefighterID
}

var (
	mooreOffsets      = []Pos{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	vonNeumannOffsets = []Pos{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
)

// Grid is a bounded, non-toroidal 2D array of cells stored in row-major order.
type Grid struct {
	w, h    int
	cells   []Cell
	offsets []Pos
}

// NewGrid allocates a w×h grid of vegetated, empty cells.
func NewGrid(w, h int, hood Neighborhood) *Grid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	g := &Grid{w: w, h: h, cells: make([]Cell, w*h), offsets: mooreOffsets}
	if hood == NeighborhoodVonNeumann {
		g.offsets = vonNeumannOffsets
	}
	g.Clear()
	return g
}

// Width reports the number of columns.
func (g *Grid) Width() int { return g.w }

// Height reports the number of rows.
func (g *Grid) Height() int { return g.h }

// Len reports the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Clear resets every cell to vegetated with no occupants.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = Cell{Terrain: TerrainVegetated, Tree: NoTree, Firefighters: g.cells[i].Firefighters[:0]}
	}
}

// InBounds reports whether p addresses a cell.
func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.w && p.Y >= 0 && p.Y < g.h
}

// Index returns the row-major slice index of p.
func (g *Grid) Index(p Pos) int { return p.Y*g.w + p.X }

// PosOf inverts Index.
func (g *Grid) PosOf(idx int) Pos { return Pos{X: idx % g.w, Y: idx / g.w} }

// At returns the cell at p. It panics when p is out of range.
func (g *Grid) At(p Pos) *Cell { return &g.cells[g.Index(p)] }

// TreeAt returns the tree id at p, or NoTree outside the grid.
func (g *Grid) TreeAt(p Pos) TreeID {
	if !g.InBounds(p) {
		return NoTree
	}
	return g.cells[g.Index(p)].Tree
}

// Neighbors appends the in-bounds neighbours of p to buf and returns it.
// Boundary cells have fewer neighbours; there is no wraparound.
func (g *Grid) Neighbors(p Pos, buf []Pos) []Pos {
	for _, o := range g.offsets {
		n := Pos{X: p.X + o.X, Y: p.Y + o.Y}
		if n.X < 0 || n.X >= g.w || n.Y < 0 || n.Y >= g.h {
			continue
		}
		buf = append(buf, n)
	}
	return buf
}

// Within appends every in-bounds cell whose Chebyshev distance to p is at most
// r, p included.
func (g *Grid) Within(p Pos, r int, buf []Pos) []Pos {
	for dy := -r; dy <= r; dy++ {
		y := p.Y + dy
		if y < 0 || y >= g.h {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			x := p.X + dx
			if x < 0 || x >= g.w {
				continue
			}
			buf = append(buf, Pos{X: x, Y: y})
		}
	}
	return buf
}

// PlaceFirefighter adds id to the occupants of p.
func (g *Grid) PlaceFirefighter(id FirefighterID, p Pos) {
	c := g.At(p)
	c.Firefighters = append(c.Firefighters, id)
}

// MoveFirefighter relocates id from one cell to another.
func (g *Grid) MoveFirefighter(id FirefighterID, from, to Pos) {
	if from == to {
		return
	}
	c := g.At(from)
	for i, occupant := range c.Firefighters {
		if occupant == id {
			c.Firefighters = append(c.Firefighters[:i], c.Firefighters[i+1:]...)
			break
		}
	}
	g.PlaceFirefighter(id, to)
}
