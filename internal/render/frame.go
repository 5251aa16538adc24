package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"wildfire/internal/core"
)

// Frame renders cells into an image scaled by scale (minimum 1) with
// nearest-neighbour sampling.
func Frame(cells []uint8, size core.Size, palette []color.RGBA, scale int) (*image.RGBA, error) {
	if size.W <= 0 || size.H <= 0 {
		return nil, fmt.Errorf("render: empty frame %dx%d", size.W, size.H)
	}
	if len(cells) != size.W*size.H {
		return nil, fmt.Errorf("render: %d cells for a %dx%d grid", len(cells), size.W, size.H)
	}
	if scale < 1 {
		scale = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	FillPaletteRGBA(src.Pix, cells, palette)
	if scale == 1 {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.W*scale, size.H*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// OutlineCells strokes a one-pixel border around the inclusive cell range
// [minX,maxX]x[minY,maxY] of an image produced by Frame at the same scale.
func OutlineCells(img *image.RGBA, minX, minY, maxX, maxY, scale int, col color.RGBA) {
	if scale < 1 {
		scale = 1
	}
	r := image.Rect(minX*scale, minY*scale, (maxX+1)*scale, (maxY+1)*scale).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
