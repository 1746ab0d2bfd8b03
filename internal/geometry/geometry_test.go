package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestContainFit(t *testing.T) {
	tests := []struct {
		name      string
		container Size
		img       Size
		want      Rect
	}{
		{
			name:      "wide image letterboxed",
			container: Size{800, 800},
			img:       Size{2000, 1000},
			want:      Rect{X: 0, Y: 200, W: 800, H: 400},
		},
		{
			name:      "tall image pillarboxed",
			container: Size{800, 600},
			img:       Size{1000, 2000},
			want:      Rect{X: 250, Y: 0, W: 300, H: 600},
		},
		{
			name:      "same ratio fills container",
			container: Size{400, 200},
			img:       Size{2000, 1000},
			want:      Rect{X: 0, Y: 0, W: 400, H: 200},
		},
		{
			name:      "degenerate container",
			container: Size{0, 600},
			img:       Size{1000, 1000},
			want:      Rect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContainFit(tt.container, tt.img)
			if !almostEqual(got.X, tt.want.X) || !almostEqual(got.Y, tt.want.Y) ||
				!almostEqual(got.W, tt.want.W) || !almostEqual(got.H, tt.want.H) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

// TestContainFitProperties checks fit, aspect preservation and scale over a grid of sizes
func TestContainFitProperties(t *testing.T) {
	dims := []float64{1, 37, 200, 333.5, 1024, 4096}

	for _, cw := range dims {
		for _, ch := range dims {
			for _, iw := range dims {
				for _, ih := range dims {
					container := Size{cw, ch}
					img := Size{iw, ih}
					r := ContainFit(container, img)

					if r.X < -epsilon || r.Y < -epsilon ||
						r.X+r.W > cw+1e-6*cw || r.Y+r.H > ch+1e-6*ch {
						t.Fatalf("Rect %+v escapes container %+v for image %+v", r, container, img)
					}
					if !almostEqual(r.W/r.H, iw/ih) {
						t.Fatalf("Aspect ratio not preserved: rect %+v image %+v", r, img)
					}
					if !almostEqual(Scale(container, img)*r.W, iw) {
						t.Fatalf("Scale x displayed width != intrinsic width for %+v in %+v", img, container)
					}
				}
			}
		}
	}
}

func TestMapDelta(t *testing.T) {
	// 2000x1000 shown at 0.4x in an 800x800 viewport
	dx, dy := MapDelta(Size{800, 800}, Size{2000, 1000}, 10, 5)
	if !almostEqual(dx, 25) || !almostEqual(dy, 12.5) {
		t.Errorf("Expected (25, 12.5), got (%v, %v)", dx, dy)
	}

	dx, dy = MapDelta(Size{0, 0}, Size{2000, 1000}, 10, 5)
	if dx != 0 || dy != 0 {
		t.Errorf("Expected zero delta for degenerate container, got (%v, %v)", dx, dy)
	}
}

func TestToScreen(t *testing.T) {
	container := Size{800, 800}
	img := Size{2000, 1000}

	got := ToScreen(container, img, Rect{X: 500, Y: 100, W: 800, H: 800})
	want := Rect{X: 200, Y: 240, W: 320, H: 320}

	if !almostEqual(got.X, want.X) || !almostEqual(got.Y, want.Y) ||
		!almostEqual(got.W, want.W) || !almostEqual(got.H, want.H) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}
