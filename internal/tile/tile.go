// Package tile renders the wrap-around offset used to check seam continuity.
package tile

import (
	"fmt"
	"image"
	"math"

	"github.com/nbox/texturelab/internal/geometry"
	"golang.org/x/image/draw"
)

// Normalize folds an offset percentage into [0,1)
func Normalize(offset float64) float64 {
	n := math.Mod(math.Mod(offset, 100)+100, 100) / 100
	if n >= 1 {
		return 0
	}
	return n
}

// shiftPixels converts an offset percentage into a whole-pixel shift in [0, size)
func shiftPixels(offset float64, size int) int {
	s := roundHalfUp(Normalize(offset) * float64(size))
	if s >= size {
		s = 0
	}
	return s
}

// Shift treats img as a torus and rolls it by (offsetX%, offsetY%) of its size.
// It is the four-block composite used for exported maps.
func Shift(img image.Image, offsetX, offsetY float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	roll(dst, img, shiftPixels(offsetX, w), shiftPixels(offsetY, h))
	return dst
}

// roll copies src into dst moved by (sx, sy) pixels with wraparound.
// dst must match the size of src and 0 <= sx < w, 0 <= sy < h.
func roll(dst *image.NRGBA, src image.Image, sx, sy int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	o := b.Min

	// bottom-right block to top-left
	copyBlock(dst, image.Pt(0, 0), src, image.Rect(w-sx, h-sy, w, h).Add(o))
	// bottom-left block to top-right
	copyBlock(dst, image.Pt(sx, 0), src, image.Rect(0, h-sy, w-sx, h).Add(o))
	// top-right block to bottom-left
	copyBlock(dst, image.Pt(0, sy), src, image.Rect(w-sx, 0, w, h-sy).Add(o))
	// top-left block to bottom-right
	copyBlock(dst, image.Pt(sx, sy), src, image.Rect(0, 0, w-sx, h-sy).Add(o))
}

func copyBlock(dst *image.NRGBA, dp image.Point, src image.Image, sr image.Rectangle) {
	if sr.Empty() {
		return
	}
	draw.Copy(dst, dp, src, sr, draw.Src, nil)
}

// BackgroundPosition returns the CSS background-position, in viewport pixels,
// that reproduces the offset when the map is painted as a repeating background.
func BackgroundPosition(offsetX, offsetY float64, viewport geometry.Size) (float64, float64) {
	return offsetX / 100 * viewport.W, offsetY / 100 * viewport.H
}

// BackgroundCSS renders the preview style declarations for a repeating background
func BackgroundCSS(offsetX, offsetY float64, viewport geometry.Size) string {
	px, py := BackgroundPosition(offsetX, offsetY, viewport)
	return fmt.Sprintf("background-position: %gpx %gpx; background-repeat: repeat; background-size: 100%% 100%%;", px, py)
}

// Preview paints img as a repeating background stretched to the viewport and
// translated by the background position. At viewport == image size it matches Shift.
func Preview(img image.Image, offsetX, offsetY float64, viewport image.Point) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, viewport.X, viewport.Y))
	if viewport.X <= 0 || viewport.Y <= 0 {
		return dst
	}

	b := img.Bounds()
	tile := img
	if b.Dx() != viewport.X || b.Dy() != viewport.Y {
		scaled := image.NewNRGBA(dst.Bounds())
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		tile = scaled
	}

	px, py := BackgroundPosition(offsetX, offsetY, geometry.Size{W: float64(viewport.X), H: float64(viewport.Y)})
	roll(dst, tile, wrap(roundHalfUp(px), viewport.X), wrap(roundHalfUp(py), viewport.Y))
	return dst
}

// roundHalfUp rounds toward +Inf on ties so values that differ by a whole
// tile size round to pixel shifts that are congruent modulo that size.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}

// FinalFilename names an adjusted and tiled export
func FinalFilename(material, suffix string) string {
	return fmt.Sprintf("%s_%s_final.png", material, suffix)
}

// RawFilename names an unadjusted per-map export
func RawFilename(material, suffix string) string {
	return fmt.Sprintf("%s_%s.png", material, suffix)
}
