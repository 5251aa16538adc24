package wildfire

import "image/color"

const (
	displayWater       uint8 = 0
	displayRoad        uint8 = 1
	displayAsh         uint8 = 2
	displayFuelBase    uint8 = 3
	displayFuelLevels        = 250
	displayFire        uint8 = displayFuelBase + displayFuelLevels
	displayFirefighter uint8 = displayFire + 1
)

var wildfirePalette = buildWildfirePalette()

// Palette exposes the color palette used for rendering the wildfire world.
func (w *World) Palette() []color.RGBA {
	return wildfirePalette
}

func buildWildfirePalette() []color.RGBA {
	palette := make([]color.RGBA, 256)
	palette[displayWater] = color.RGBA{R: 40, G: 90, B: 180, A: 255}
	palette[displayRoad] = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	palette[displayAsh] = color.RGBA{R: 45, G: 40, B: 38, A: 255}
	for level := 0; level < displayFuelLevels; level++ {
		load := float64(level) / float64(displayFuelLevels-1)
		palette[int(displayFuelBase)+level] = color.RGBA{R: 0, G: uint8(40 + 215*load + 0.5), B: 0, A: 255}
	}
	palette[displayFire] = color.RGBA{R: 230, G: 40, B: 20, A: 255}
	palette[displayFirefighter] = color.RGBA{R: 250, G: 220, B: 40, A: 255}
	palette[255] = color.RGBA{A: 255}
	return palette
}

func (w *World) encodeCell(c *Cell) uint8 {
	if len(c.Firefighters) > 0 {
		return displayFirefighter
	}
	switch c.Terrain {
	case TerrainWater:
		return displayWater
	case TerrainRoad:
		return displayRoad
	}
	if c.Tree == NoTree {
		return displayAsh
	}
	t := &w.trees[c.Tree]
	if t.OnFire {
		return displayFire
	}
	if t.Density <= 0 {
		return displayAsh
	}
	level := int(w.load(t.Density)*float64(displayFuelLevels-1) + 0.5)
	return displayFuelBase + uint8(min(max(level, 0), displayFuelLevels-1))
}

func (w *World) rebuildDisplay() {
	for y := 0; y < w.h; y++ {
		for x := 0; x < w.w; x++ {
			w.display.Set(x, y, w.encodeCell(w.grid.At(Pos{X: x, Y: y})))
		}
	}
}
