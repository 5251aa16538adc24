package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"wildfire/internal/core"
)

var testPalette = []color.RGBA{
	{R: 10, A: 255},
	{G: 20, A: 255},
	{B: 30, A: 255},
}

func TestFillPaletteClampsIndices(t *testing.T) {
	buf := make([]byte, 12)
	FillPaletteRGBA(buf, []uint8{0, 2, 200}, testPalette)
	want := []byte{10, 0, 0, 255, 0, 0, 30, 255, 0, 0, 30, 255}
	if !bytes.Equal(buf, want) {
		t.Fatalf("buf = %v, want %v", buf, want)
	}

	FillPaletteRGBA(buf, []uint8{0, 1, 2}, nil)
	if !bytes.Equal(buf, make([]byte, 12)) {
		t.Fatalf("empty palette should clear, got %v", buf)
	}
}

func TestFrameScalesCells(t *testing.T) {
	cells := []uint8{0, 1, 2, 1}
	img, err := Frame(cells, core.Size{W: 2, H: 2}, testPalette, 3)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 6 {
		t.Fatalf("bounds = %v", b)
	}
	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, testPalette[0]},
		{2, 2, testPalette[0]},
		{3, 0, testPalette[1]},
		{5, 2, testPalette[1]},
		{0, 3, testPalette[2]},
		{5, 5, testPalette[1]},
	}
	for _, c := range checks {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Fatalf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}

	if _, err := Frame(cells, core.Size{W: 3, H: 2}, testPalette, 1); err == nil {
		t.Fatal("expected an error for a size mismatch")
	}
	if _, err := Frame(nil, core.Size{}, testPalette, 1); err == nil {
		t.Fatal("expected an error for an empty grid")
	}
}

func TestOutlineAndEncode(t *testing.T) {
	cells := make([]uint8, 16)
	img, err := Frame(cells, core.Size{W: 4, H: 4}, testPalette, 2)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	mark := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	OutlineCells(img, 1, 1, 2, 2, 2, mark)
	for _, p := range [][2]int{{2, 2}, {5, 2}, {2, 5}, {5, 5}, {3, 2}} {
		if got := img.RGBAAt(p[0], p[1]); got != mark {
			t.Fatalf("border pixel %v = %v", p, got)
		}
	}
	if got := img.RGBAAt(3, 3); got != testPalette[0] {
		t.Fatalf("interior pixel overwritten: %v", got)
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 8 {
		t.Fatalf("png size %dx%d", cfg.Width, cfg.Height)
	}
}
