//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"wildfire/internal/core"
	"wildfire/internal/sims/wildfire"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type fireEdgesProvider interface {
	FireEdges() (wildfire.Rect, bool)
	Config() wildfire.Config
}

type firefighterProvider interface {
	Firefighters() []wildfire.Firefighter
}

type treeProvider interface {
	Trees() []wildfire.Tree
	Config() wildfire.Config
}

// Overlay draws optional debugging visuals on top of the base simulation.
//
//	1 fire bounding box
//	2 fire-line perimeter (box expanded by the fire line margin)
//	3 firefighter markers
//	4 density heat map
type Overlay struct {
	sim          core.Sim
	scale        int
	showEdges    bool
	showFireLine bool
	showCrew     bool
	showDensity  bool

	maskImg *ebiten.Image
	maskBuf []byte
	pixel   *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	o := &Overlay{sim: sim, scale: scale, showEdges: true}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update allows the overlay to update internal state.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showEdges = !o.showEdges
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit2) {
		o.showFireLine = !o.showFireLine
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit3) {
		o.showCrew = !o.showCrew
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit4) {
		o.showDensity = !o.showDensity
	}
}

// Draw renders the overlay onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	size := o.sim.Size()
	if size.W <= 0 || size.H <= 0 {
		return
	}
	scale := o.scale
	if scale <= 0 {
		scale = 1
	}

	if o.showDensity {
		if provider, ok := o.sim.(treeProvider); ok {
			o.drawDensity(screen, provider, size, scale)
		}
	}

	if provider, ok := o.sim.(fireEdgesProvider); ok && (o.showEdges || o.showFireLine) {
		if box, ok := provider.FireEdges(); ok {
			if o.showFireLine {
				margin := provider.Config().Params.FireLineMargin
				o.drawRect(screen, box.Expand(margin).Clamp(size.W, size.H), scale, color.RGBA{R: 255, G: 230, B: 90, A: 200})
			}
			if o.showEdges {
				o.drawRect(screen, box, scale, color.RGBA{R: 80, G: 200, B: 255, A: 220})
			}
		}
	}

	if o.showCrew {
		if provider, ok := o.sim.(firefighterProvider); ok {
			dot := math.Max(float64(scale)*0.8, 2)
			for _, ff := range provider.Firefighters() {
				cx := (float64(ff.Pos.X) + 0.5) * float64(scale)
				cy := (float64(ff.Pos.Y) + 0.5) * float64(scale)
				o.drawPoint(screen, cx, cy, dot*1.8, color.RGBA{A: 180})
				o.drawPoint(screen, cx, cy, dot, color.RGBA{R: 40, G: 120, B: 255, A: 255})
			}
		}
	}
}

func (o *Overlay) drawRect(screen *ebiten.Image, r wildfire.Rect, scale int, col color.RGBA) {
	s := float64(scale)
	x0, y0 := float64(r.MinX)*s, float64(r.MinY)*s
	x1, y1 := float64(r.MaxX+1)*s, float64(r.MaxY+1)*s
	thickness := math.Max(1, s/3)
	o.drawLine(screen, x0, y0, x1, y0, thickness, col)
	o.drawLine(screen, x0, y1, x1, y1, thickness, col)
	o.drawLine(screen, x0, y0, x0, y1, thickness, col)
	o.drawLine(screen, x1, y0, x1, y1, thickness, col)
}

func (o *Overlay) drawPoint(screen *ebiten.Image, x, y, size float64, col color.RGBA) {
	if o.pixel == nil || size <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size, size)
	op.GeoM.Translate(x-size*0.5, y-size*0.5)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	if o.pixel == nil || thickness <= 0 {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length, thickness)
	op.GeoM.Translate(0, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}

func (o *Overlay) drawDensity(screen *ebiten.Image, provider treeProvider, size core.Size, scale int) {
	total := size.W * size.H
	if o.maskImg == nil || o.maskImg.Bounds().Dx() != size.W || o.maskImg.Bounds().Dy() != size.H {
		o.maskImg = ebiten.NewImage(size.W, size.H)
		o.maskBuf = make([]byte, 4*total)
	}
	clear(o.maskBuf)

	const (
		maxAlpha      = 170.0
		intensityBias = 0.75
	)
	maxDensity := provider.Config().Params.MaxDensity
	for _, t := range provider.Trees() {
		if t.Density <= 0 {
			continue
		}
		intensity := clamp01(t.Density / maxDensity)
		col := heatColor(intensity)
		base := 4 * (t.Pos.Y*size.W + t.Pos.X)
		o.maskBuf[base+0] = col.R
		o.maskBuf[base+1] = col.G
		o.maskBuf[base+2] = col.B
		o.maskBuf[base+3] = uint8(math.Round(maxAlpha * math.Pow(intensity, intensityBias)))
	}
	o.maskImg.WritePixels(o.maskBuf)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	screen.DrawImage(o.maskImg, op)
}

func heatColor(t float64) color.RGBA {
	t = clamp01(t)
	stops := []struct {
		t   float64
		col color.RGBA
	}{
		{0.0, color.RGBA{R: 40, G: 60, B: 120}},
		{0.35, color.RGBA{R: 70, G: 150, B: 110}},
		{0.7, color.RGBA{R: 210, G: 190, B: 70}},
		{1.0, color.RGBA{R: 250, G: 245, B: 220}},
	}
	for i := 1; i < len(stops); i++ {
		curr := stops[i]
		if t <= curr.t {
			prev := stops[i-1]
			span := curr.t - prev.t
			var local float64
			if span > 0 {
				local = (t - prev.t) / span
			}
			return lerpRGBA(prev.col, curr.col, clamp01(local))
		}
	}
	return stops[len(stops)-1].col
}

func lerpRGBA(a, b color.RGBA, t float64) color.RGBA {
	t = clamp01(t)
	return color.RGBA{
		R: lerpComponent(a.R, b.R, t),
		G: lerpComponent(a.G, b.G, t),
		B: lerpComponent(a.B, b.B, t),
		A: lerpComponent(a.A, b.A, t),
	}
}

func lerpComponent(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
