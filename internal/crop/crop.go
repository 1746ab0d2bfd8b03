// Package crop implements the interactive crop session run before an uploaded
// image becomes the working source.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/nbox/texturelab/internal/geometry"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// MinSize is the smallest allowed crop edge in source pixels
const MinSize = 50

// DefaultOutputSize is the edge of the square surface a committed crop is drawn onto
const DefaultOutputSize = 1024

// defaultFraction of the shorter image side used for the initial square
const defaultFraction = 0.8

var (
	ErrNotOpen           = errors.New("crop session is not open")
	ErrInteractionActive = errors.New("another crop interaction is active")
	ErrNoInteraction     = errors.New("no crop interaction is active")
	ErrImageTooSmall     = fmt.Errorf("image is smaller than %dx%d", MinSize, MinSize)
)

// State is the lifecycle state of a session
type State string

const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateCommitting State = "committing"
	StateCancelled  State = "cancelled"
)

// Interaction is a pointer gesture acting on the crop rectangle
type Interaction string

const (
	None   Interaction = ""
	Move   Interaction = "move"
	Resize Interaction = "resize"
)

// Session holds the crop rectangle while the user frames an uploaded image.
// It is not safe for concurrent use; callers serialise access.
type Session struct {
	state  State
	source image.Image
	bounds geometry.Size
	rect   geometry.Rect
	active Interaction
}

// NewSession returns a closed session
func NewSession() *Session {
	return &Session{state: StateClosed}
}

// Open starts a session on img with a centred square covering 80% of the shorter side
func (s *Session) Open(img image.Image) error {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w < MinSize || h < MinSize {
		return ErrImageTooSmall
	}

	size := math.Max(MinSize, math.Min(w, h)*defaultFraction)

	s.state = StateOpen
	s.source = img
	s.bounds = geometry.Size{W: w, H: h}
	s.rect = geometry.Rect{
		X: (w - size) / 2,
		Y: (h - size) / 2,
		W: size,
		H: size,
	}
	s.active = None
	return nil
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// IsOpen reports whether the session accepts gestures
func (s *Session) IsOpen() bool {
	return s.state == StateOpen
}

// Rect returns the current crop rectangle in source pixels
func (s *Session) Rect() geometry.Rect {
	return s.rect
}

// ImageSize returns the intrinsic size of the image being cropped
func (s *Session) ImageSize() geometry.Size {
	return s.bounds
}

// Active returns the interaction in progress, if any
func (s *Session) Active() Interaction {
	return s.active
}

// Begin starts a move or resize gesture
func (s *Session) Begin(i Interaction) error {
	if s.state != StateOpen {
		return ErrNotOpen
	}
	if i != Move && i != Resize {
		return fmt.Errorf("unknown crop interaction %q", i)
	}
	if s.active != None {
		return ErrInteractionActive
	}
	s.active = i
	return nil
}

// Drag applies a screen-space pointer delta to the active gesture. The delta is
// mapped into image space against the current container size on every call.
func (s *Session) Drag(container geometry.Size, dx, dy float64) (geometry.Rect, error) {
	if s.state != StateOpen {
		return s.rect, ErrNotOpen
	}
	if s.active == None {
		return s.rect, ErrNoInteraction
	}

	ix, iy := geometry.MapDelta(container, s.bounds, dx, dy)

	switch s.active {
	case Move:
		s.rect = s.moved(ix, iy)
	case Resize:
		s.rect = s.resized(ix, iy)
	}
	return s.rect, nil
}

// SetRect replaces the rectangle, clamped to the image and the minimum size
func (s *Session) SetRect(r geometry.Rect) (geometry.Rect, error) {
	if s.state != StateOpen {
		return s.rect, ErrNotOpen
	}
	if s.active != None {
		return s.rect, ErrInteractionActive
	}
	r.W = clamp(r.W, MinSize, s.bounds.W)
	r.H = clamp(r.H, MinSize, s.bounds.H)
	r.X = clamp(r.X, 0, s.bounds.W-r.W)
	r.Y = clamp(r.Y, 0, s.bounds.H-r.H)
	s.rect = r
	return r, nil
}

// Release ends whichever gesture is active
func (s *Session) Release() {
	s.active = None
}

func (s *Session) moved(dx, dy float64) geometry.Rect {
	r := s.rect
	r.X = clamp(r.X+dx, 0, s.bounds.W-r.W)
	r.Y = clamp(r.Y+dy, 0, s.bounds.H-r.H)
	return r
}

func (s *Session) resized(dx, dy float64) geometry.Rect {
	r := s.rect
	r.W = math.Max(MinSize, math.Min(s.bounds.W-r.X, r.W+dx))
	r.H = math.Max(MinSize, math.Min(s.bounds.H-r.Y, r.H+dy))
	return r
}

// Commit draws the selected region onto a size x size surface and closes the session
func (s *Session) Commit(size int) (*image.NRGBA, error) {
	if s.state != StateOpen {
		return nil, ErrNotOpen
	}
	if size <= 0 {
		size = DefaultOutputSize
	}
	s.state = StateCommitting

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	src := s.source
	sb := src.Bounds()
	kx := float64(size) / s.rect.W
	ky := float64(size) / s.rect.H

	// source pixel (x, y) lands at ((x - rect.X) * kx, (y - rect.Y) * ky)
	s2d := f64.Aff3{
		kx, 0, -(s.rect.X + float64(sb.Min.X)) * kx,
		0, ky, -(s.rect.Y + float64(sb.Min.Y)) * ky,
	}
	draw.CatmullRom.Transform(dst, s2d, src, sb, draw.Src, nil)

	s.close()
	return dst, nil
}

// Cancel discards the rectangle and returns the original image unchanged
func (s *Session) Cancel() (image.Image, error) {
	if s.state != StateOpen {
		return nil, ErrNotOpen
	}
	s.state = StateCancelled
	src := s.source
	s.close()
	return src, nil
}

func (s *Session) close() {
	s.state = StateClosed
	s.source = nil
	s.bounds = geometry.Size{}
	s.rect = geometry.Rect{}
	s.active = None
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
