// Package crop implements the interactive cropper: a fixed-aspect crop box
// over a source image that the user pans and zooms before committing.
package crop

import (
	"math"

	"mathsketch/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DefaultAspect is the crop box width:height ratio.
	DefaultAspect = 4.0 / 3.0

	MinZoom  = 1.0
	MaxZoom  = 3.0
	ZoomStep = 1.25
)

// Region is a crop rectangle in source pixel space.
type Region = geometry.RectInt

// State is the interactive part of the cropper: the pan offset of the image
// under the crop box, in preview pixels, and the zoom factor.
type State struct {
	Pan  geometry.Point2D
	Zoom float64
}

// InitialState is the state after loading a source or cancelling.
func InitialState() State {
	return State{Zoom: MinZoom}
}

// Frame holds the fixed geometry a crop is computed against. The preview
// is the on-screen crop frame: at zoom 1 the whole crop box fills it.
type Frame struct {
	Source geometry.Size // source pixel size
	Scale  float64       // preview pixels per source pixel at zoom 1
	Aspect float64
}

// NewFrame fits the crop box of a source into a preview frame. An empty
// preview means the crop box is shown at source resolution.
func NewFrame(source, preview geometry.Size, aspect float64) Frame {
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	f := Frame{Source: source, Scale: 1, Aspect: aspect}
	if !preview.Empty() && !source.Empty() {
		box := f.boxSize(1)
		f.Scale = math.Min(preview.Width/box.X, preview.Height/box.Y)
	}
	return f
}

// boxSize returns the crop box size in source pixels at the given zoom: the
// largest rectangle of the frame's aspect that fits the source, shrunk by zoom.
func (f Frame) boxSize(zoom float64) r2.Vec {
	w, h := f.Source.Width, f.Source.Height
	if w/h > f.Aspect {
		w = h * f.Aspect
	} else {
		h = w / f.Aspect
	}
	return r2.Scale(1/zoom, r2.Vec{X: w, Y: h})
}

func (f Frame) sourceCenter() r2.Vec {
	return r2.Vec{X: f.Source.Width / 2, Y: f.Source.Height / 2}
}

// center returns the source pixel under the middle of the crop box.
func (f Frame) center(s State) r2.Vec {
	pan := r2.Vec{X: s.Pan.X, Y: s.Pan.Y}
	return r2.Sub(f.sourceCenter(), r2.Scale(1/(f.Scale*s.Zoom), pan))
}

// Restrict clamps zoom to [MinZoom, MaxZoom] and pan so that the crop box
// stays inside the source. A non-finite pan returns to the origin.
func (f Frame) Restrict(s State) State {
	s.Zoom = clamp(s.Zoom, MinZoom, MaxZoom)
	if math.IsNaN(s.Zoom) {
		s.Zoom = MinZoom
	}
	if !finite(s.Pan.X) || !finite(s.Pan.Y) {
		s.Pan = geometry.Point2D{}
	}

	box := f.boxSize(s.Zoom)
	c := f.center(s)
	c.X = clamp(c.X, box.X/2, f.Source.Width-box.X/2)
	c.Y = clamp(c.Y, box.Y/2, f.Source.Height-box.Y/2)

	pan := r2.Scale(f.Scale*s.Zoom, r2.Sub(f.sourceCenter(), c))
	s.Pan = geometry.NewPoint2D(pan.X, pan.Y)
	return s
}

// Region derives the pixel-space crop rectangle for a state. The state is
// restricted first, so the result always lies inside the source.
func (f Frame) Region(s State) Region {
	s = f.Restrict(s)
	srcW := int(math.Round(f.Source.Width))
	srcH := int(math.Round(f.Source.Height))

	box := f.boxSize(s.Zoom)
	c := f.center(s)

	w := clampInt(int(math.Round(box.X)), 1, srcW)
	h := clampInt(int(math.Round(box.Y)), 1, srcH)
	x := clampInt(int(math.Round(c.X-box.X/2)), 0, srcW-w)
	y := clampInt(int(math.Round(c.Y-box.Y/2)), 0, srcH-h)
	return Region{X: x, Y: y, Width: w, Height: h}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
