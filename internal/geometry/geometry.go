// Package geometry maps pointer coordinates between a viewport and an image
// displayed inside it with "contain" fit.
package geometry

// Size is a width/height pair in pixels
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// Ratio returns width divided by height
func (s Size) Ratio() float64 {
	return s.W / s.H
}

// Rect is an axis-aligned rectangle with floating point origin and size
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// ContainFit returns the rectangle occupied by an image of intrinsic size img
// when it is scaled to fit entirely inside container, centred on the free axis.
func ContainFit(container, img Size) Rect {
	if !container.Valid() || !img.Valid() {
		return Rect{}
	}

	if img.Ratio() > container.Ratio() {
		h := container.W / img.Ratio()
		return Rect{
			X: 0,
			Y: (container.H - h) / 2,
			W: container.W,
			H: h,
		}
	}

	w := container.H * img.Ratio()
	return Rect{
		X: (container.W - w) / 2,
		Y: 0,
		W: w,
		H: container.H,
	}
}

// Scale returns image pixels per screen pixel for the contain-fitted image
func Scale(container, img Size) float64 {
	displayed := ContainFit(container, img)
	if displayed.W <= 0 {
		return 0
	}
	return img.W / displayed.W
}

// MapDelta converts a screen-space pointer delta into image-space pixels
func MapDelta(container, img Size, dx, dy float64) (float64, float64) {
	scale := Scale(container, img)
	return dx * scale, dy * scale
}

// ToScreen projects a rectangle in image pixels into container coordinates,
// accounting for letterbox or pillarbox margins.
func ToScreen(container, img Size, r Rect) Rect {
	displayed := ContainFit(container, img)
	if displayed.W <= 0 {
		return Rect{}
	}
	k := displayed.W / img.W
	return Rect{
		X: displayed.X + r.X*k,
		Y: displayed.Y + r.Y*k,
		W: r.W * k,
		H: r.H * k,
	}
}
