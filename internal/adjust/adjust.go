// Package adjust applies the per-map colour adjustments. The filter is the CSS
// chain brightness() contrast() saturate() hue-rotate(), so the browser preview
// and a baked export produce the same pixels.
package adjust

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nbox/texturelab/internal/models"
)

// matrix is a 3x3 linear colour transform on non-premultiplied sRGB in [0,1]
type matrix [9]float64

var identity = matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

func (m matrix) apply(r, g, b float64) (float64, float64, float64) {
	return m[0]*r + m[1]*g + m[2]*b,
		m[3]*r + m[4]*g + m[5]*b,
		m[6]*r + m[7]*g + m[8]*b
}

// saturateMatrix follows the Filter Effects definition of saturate()
func saturateMatrix(s float64) matrix {
	return matrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}
}

// hueRotateMatrix follows the Filter Effects definition of hue-rotate()
func hueRotateMatrix(deg float64) matrix {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return matrix{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}
}

// Filter is a compiled adjustment chain
type Filter struct {
	brightness float64
	contrast   float64
	saturate   matrix
	hue        matrix
	identity   bool
}

// New compiles the colour part of a. Offsets are ignored.
func New(a models.Adjustments) Filter {
	f := Filter{
		brightness: float64(a.Brightness) / 100,
		contrast:   float64(a.Contrast) / 100,
		saturate:   identity,
		hue:        identity,
	}
	if a.Saturation != 100 {
		f.saturate = saturateMatrix(float64(a.Saturation) / 100)
	}
	if a.Temperature != 0 {
		f.hue = hueRotateMatrix(float64(a.Temperature))
	}
	f.identity = a.Brightness == 100 && a.Contrast == 100 && a.Saturation == 100 && a.Temperature == 0
	return f
}

// IsIdentity reports whether the filter leaves pixels untouched
func (f Filter) IsIdentity() bool {
	return f.identity
}

// Color filters one non-premultiplied pixel. Alpha is preserved.
func (f Filter) Color(c color.NRGBA) color.NRGBA {
	if f.identity {
		return c
	}

	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	// each filter function clamps its output before the next one runs
	r, g, b = clamp01(r*f.brightness), clamp01(g*f.brightness), clamp01(b*f.brightness)

	intercept := 0.5 - 0.5*f.contrast
	r, g, b = clamp01(r*f.contrast+intercept), clamp01(g*f.contrast+intercept), clamp01(b*f.contrast+intercept)

	r, g, b = f.saturate.apply(r, g, b)
	r, g, b = clamp01(r), clamp01(g), clamp01(b)

	r, g, b = f.hue.apply(r, g, b)

	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: c.A}
}

// Apply returns a filtered copy of img with a zero origin
func (f Filter) Apply(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetNRGBA(x, y, f.Color(c))
		}
	}
	return dst
}

// CSS returns the filter declaration used by the live preview
func CSS(a models.Adjustments) string {
	return fmt.Sprintf("brightness(%d%%) contrast(%d%%) saturate(%d%%) hue-rotate(%ddeg)",
		a.Brightness, a.Contrast, a.Saturation, a.Temperature)
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

func to8(v float64) uint8 {
	return uint8(math.Floor(clamp01(v)*255 + 0.5))
}
