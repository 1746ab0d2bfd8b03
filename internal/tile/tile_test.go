package tile

import (
	"image"
	"image/color"
	"testing"

	"github.com/nbox/texturelab/internal/geometry"
)

// uniqueImage gives every pixel a distinct colour so permutations are detectable
func uniqueImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(i), G: uint8(i >> 8), B: uint8(x * 7), A: 255})
		}
	}
	return img
}

func key(c color.NRGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		offset float64
		want   float64
	}{
		{0, 0},
		{25, 0.25},
		{100, 0},
		{-25, 0.75},
		{-100, 0},
		{250, 0.5},
	}

	for _, tt := range tests {
		if got := Normalize(tt.offset); got != tt.want {
			t.Errorf("Normalize(%v): expected %v, got %v", tt.offset, tt.want, got)
		}
	}
}

func TestShiftZeroIsIdentity(t *testing.T) {
	src := uniqueImage(37, 23)
	out := Shift(src, 0, 0)

	for y := 0; y < 23; y++ {
		for x := 0; x < 37; x++ {
			if out.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Fatalf("Pixel (%d,%d) changed under zero offset", x, y)
			}
		}
	}
}

func TestShiftIsRoll(t *testing.T) {
	w, h := 40, 20
	src := uniqueImage(w, h)

	tests := []struct {
		name   string
		ox, oy float64
		sx, sy int
	}{
		{"quarter", 25, 50, 10, 10},
		{"negative", -25, -50, 30, 10},
		{"full turn", 100, -100, 0, 0},
		{"horizontal only", 10, 0, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Shift(src, tt.ox, tt.oy)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					want := src.NRGBAAt(wrap(x-tt.sx, w), wrap(y-tt.sy, h))
					if got := out.NRGBAAt(x, y); got != want {
						t.Fatalf("Pixel (%d,%d): expected %+v, got %+v", x, y, want, got)
					}
				}
			}
		})
	}
}

// TestShiftIsPermutation checks no pixel data is created or discarded
func TestShiftIsPermutation(t *testing.T) {
	src := uniqueImage(31, 17)
	offsets := []float64{-100, -73, -50, -1, 0, 3, 33, 50, 99, 100}

	want := map[uint32]int{}
	for y := 0; y < 17; y++ {
		for x := 0; x < 31; x++ {
			want[key(src.NRGBAAt(x, y))]++
		}
	}

	for _, ox := range offsets {
		for _, oy := range offsets {
			out := Shift(src, ox, oy)
			got := map[uint32]int{}
			for y := 0; y < 17; y++ {
				for x := 0; x < 31; x++ {
					got[key(out.NRGBAAt(x, y))]++
				}
			}
			if len(got) != len(want) {
				t.Fatalf("Offset (%v,%v): expected %d distinct pixels, got %d", ox, oy, len(want), len(got))
			}
			for k, n := range want {
				if got[k] != n {
					t.Fatalf("Offset (%v,%v): pixel %x count %d, expected %d", ox, oy, k, got[k], n)
				}
			}
		}
	}
}

// TestShiftComplementRestores applies (ox,oy) then (100-ox,100-oy)
func TestShiftComplementRestores(t *testing.T) {
	src := uniqueImage(20, 10)
	out := Shift(Shift(src, 30, 40), 70, 60)

	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if out.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Fatalf("Pixel (%d,%d) not restored by complementary shift", x, y)
			}
		}
	}
}

func TestShiftHonoursBoundsOrigin(t *testing.T) {
	full := uniqueImage(30, 30)
	sub := full.SubImage(image.Rect(10, 10, 20, 20))

	out := Shift(sub, 50, 0)
	if out.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("Expected zero-origin 10x10 output, got %v", out.Bounds())
	}
	if got, want := out.NRGBAAt(0, 0), full.NRGBAAt(15, 10); got != want {
		t.Errorf("Expected %+v at origin, got %+v", want, got)
	}
}

func TestPreviewMatchesShift(t *testing.T) {
	w, h := 40, 20
	src := uniqueImage(w, h)
	offsets := []float64{-100, -75, -30, -5, 0, 5, 25, 50, 90, 100}

	for _, ox := range offsets {
		for _, oy := range offsets {
			shifted := Shift(src, ox, oy)
			preview := Preview(src, ox, oy, image.Pt(w, h))
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if shifted.NRGBAAt(x, y) != preview.NRGBAAt(x, y) {
						t.Fatalf("Offset (%v,%v) pixel (%d,%d): preview differs from export", ox, oy, x, y)
					}
				}
			}
		}
	}
}

func TestPreviewRollsScaledTile(t *testing.T) {
	full := uniqueImage(30, 30)
	src := full.SubImage(image.Rect(5, 7, 25, 17))
	vp := image.Pt(40, 24)

	base := Preview(src, 0, 0, vp)
	for _, off := range []struct{ x, y float64 }{{50, 0}, {-25, 50}, {125, -75}} {
		got := Preview(src, off.x, off.y, vp)
		dx := roundHalfUp(off.x / 100 * float64(vp.X))
		dy := roundHalfUp(off.y / 100 * float64(vp.Y))
		for y := 0; y < vp.Y; y++ {
			for x := 0; x < vp.X; x++ {
				want := base.NRGBAAt(wrap(x-dx, vp.X), wrap(y-dy, vp.Y))
				if got.NRGBAAt(x, y) != want {
					t.Fatalf("Offset (%v,%v) pixel (%d,%d): got %+v, want %+v", off.x, off.y, x, y, got.NRGBAAt(x, y), want)
				}
			}
		}
	}
}

func TestPreviewScalesToViewport(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{G: 200, A: 255})
		}
	}

	out := Preview(src, 10, 10, image.Pt(32, 16))
	if out.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Fatalf("Expected 32x16 preview, got %v", out.Bounds())
	}
	if c := out.NRGBAAt(31, 15); c.G < 198 || c.G > 202 {
		t.Errorf("Expected uniform colour after scaling, got %+v", c)
	}
}

func TestBackgroundPosition(t *testing.T) {
	px, py := BackgroundPosition(25, -50, geometry.Size{W: 800, H: 600})
	if px != 200 || py != -300 {
		t.Errorf("Expected (200,-300), got (%v,%v)", px, py)
	}

	css := BackgroundCSS(25, -50, geometry.Size{W: 800, H: 600})
	want := "background-position: 200px -300px; background-repeat: repeat; background-size: 100% 100%;"
	if css != want {
		t.Errorf("Expected %q, got %q", want, css)
	}
}

func TestFilenames(t *testing.T) {
	if got := FinalFilename("oak_floor", "normal"); got != "oak_floor_normal_final.png" {
		t.Errorf("Unexpected final filename %q", got)
	}
	if got := RawFilename("oak_floor", "ao"); got != "oak_floor_ao.png" {
		t.Errorf("Unexpected raw filename %q", got)
	}
}
