package wildfire

// Rect is an inclusive cell rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY int
}

// Expand grows r by m cells on every side.
func (r Rect) Expand(m int) Rect {
	return Rect{MinX: r.MinX - m, MinY: r.MinY - m, MaxX: r.MaxX + m, MaxY: r.MaxY + m}
}

// Clamp limits r to a w×h grid.
func (r Rect) Clamp(w, h int) Rect {
	return Rect{
		MinX: max(r.MinX, 0),
		MinY: max(r.MinY, 0),
		MaxX: min(r.MaxX, w-1),
		MaxY: min(r.MaxY, h-1),
	}
}

// Perimeter appends the border cells of r to buf, each once.
func (r Rect) Perimeter(buf []Pos) []Pos {
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return buf
	}
	for x := r.MinX; x <= r.MaxX; x++ {
		buf = append(buf, Pos{X: x, Y: r.MinY})
		if r.MaxY != r.MinY {
			buf = append(buf, Pos{X: x, Y: r.MaxY})
		}
	}
	for y := r.MinY + 1; y < r.MaxY; y++ {
		buf = append(buf, Pos{X: r.MinX, Y: y})
		if r.MaxX != r.MinX {
			buf = append(buf, Pos{X: r.MaxX, Y: y})
		}
	}
	return buf
}

// FireEdgeTracker caches the bounding box of burning trees. A cached box is
// valid only for the tick it was computed on.
type FireEdgeTracker struct {
	box   Rect
	found bool
	stamp int
}

// NewFireEdgeTracker returns a tracker with nothing cached.
func NewFireEdgeTracker() *FireEdgeTracker {
	return &FireEdgeTracker{stamp: -1}
}

// Edges returns the bounding box of burning trees for tick, computing it when
// the cache belongs to another tick. found is false when nothing burns.
func (f *FireEdgeTracker) Edges(tick int, trees []Tree) (box Rect, found bool) {
	if f.stamp != tick {
		f.Recalculate(tick, trees)
	}
	return f.box, f.found
}

// Recalculate rebuilds the cache for tick regardless of its stamp.
func (f *FireEdgeTracker) Recalculate(tick int, trees []Tree) (Rect, bool) {
	f.stamp = tick
	f.found = false
	f.box = Rect{}
	for i := range trees {
		t := &trees[i]
		if !t.OnFire {
			continue
		}
		if !f.found {
			f.box = Rect{MinX: t.Pos.X, MinY: t.Pos.Y, MaxX: t.Pos.X, MaxY: t.Pos.Y}
			f.found = true
			continue
		}
		f.box.MinX = min(f.box.MinX, t.Pos.X)
		f.box.MinY = min(f.box.MinY, t.Pos.Y)
		f.box.MaxX = max(f.box.MaxX, t.Pos.X)
		f.box.MaxY = max(f.box.MaxY, t.Pos.Y)
	}
	return f.box, f.found
}

// Invalidate drops the cache.
func (f *FireEdgeTracker) Invalidate() {
	f.stamp = -1
}

// Stamp reports the tick the cache was computed for, or -1.
func (f *FireEdgeTracker) Stamp() int { return f.stamp }
