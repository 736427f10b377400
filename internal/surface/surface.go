package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	sketchimage "mathsketch/internal/image"
	"mathsketch/pkg/geometry"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/vector"
)

// capSteps is the number of polygon vertices used for each round stroke cap.
const capSteps = 12

// Phase is the pointer phase delivered to Pointer.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
)

// Surface owns the stroke raster and the state that drives it.
// All methods are safe for concurrent use.
type Surface struct {
	mu     sync.Mutex
	state  State
	raster *image.RGBA
	rast   vector.Rasterizer

	// OnClear is called after Clear wipes the raster.
	OnClear func()

	// OnChange is called after any change to the raster.
	OnChange func()
}

// New creates a blank surface of the given pixel size.
func New(width, height int) *Surface {
	s := &Surface{state: NewState(width, height)}
	s.raster = blankRaster(width, height)
	return s
}

// NewForViewport creates a blank surface sized for the viewport width.
func NewForViewport(viewportWidth float64) *Surface {
	w, h := Dimensions(viewportWidth)
	return New(w, h)
}

func blankRaster(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	return img
}

// apply runs one event through Reduce and rasterizes the resulting segment.
func (s *Surface) apply(ev Event) {
	s.mu.Lock()
	next, seg := Reduce(s.state, ev)
	resized := next.Width != s.state.Width || next.Height != s.state.Height
	s.state = next
	switch {
	case ev.Kind == EventClear:
		draw.Draw(s.raster, s.raster.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	case resized:
		s.raster = blankRaster(next.Width, next.Height)
	case seg != nil:
		s.drawSegment(*seg)
	}
	onChange, onClear := s.OnChange, s.OnClear
	s.mu.Unlock()

	if ev.Kind == EventClear && onClear != nil {
		onClear()
	}
	if (seg != nil || resized || ev.Kind == EventClear) && onChange != nil {
		onChange()
	}
}

// BeginStroke starts a new stroke at a surface-local point.
func (s *Surface) BeginStroke(p geometry.Point2D) {
	s.apply(Event{Kind: EventBegin, Point: p})
}

// ExtendStroke draws from the previous point to p. It does nothing unless a
// stroke is active.
func (s *Surface) ExtendStroke(p geometry.Point2D) {
	s.apply(Event{Kind: EventExtend, Point: p})
}

// EndStroke finishes the active stroke.
func (s *Surface) EndStroke() {
	s.apply(Event{Kind: EventEnd})
}

// Clear wipes the raster back to the blank background.
func (s *Surface) Clear() {
	s.apply(Event{Kind: EventClear})
}

// SetColor selects a pen colour and leaves erase mode.
func (s *Surface) SetColor(c color.RGBA) {
	s.apply(Event{Kind: EventSetColor, Color: c})
}

// SetEraser switches to the background-coloured eraser.
func (s *Surface) SetEraser() {
	s.apply(Event{Kind: EventSetEraser})
}

// SetStrokeWidth sets the pen width. Non-positive widths are ignored.
func (s *Surface) SetStrokeWidth(w float64) {
	s.apply(Event{Kind: EventSetWidth, Width: w})
}

// Resize recomputes the pixel size for a new viewport width. Existing
// strokes are not rescaled; if the size changes the raster starts blank.
func (s *Surface) Resize(viewportWidth float64) {
	before := s.State()
	s.apply(Event{Kind: EventResize, Width: viewportWidth})
	after := s.State()
	if before.Width != after.Width || before.Height != after.Height {
		log.Debug().
			Float64("viewport", viewportWidth).
			Int("width", after.Width).
			Int("height", after.Height).
			Msg("stroke surface resized")
	}
}

// Pointer routes a device event through coordinate translation. origin is
// the surface's top-left corner in the same coordinate space as the event.
func (s *Surface) Pointer(phase Phase, ev geometry.PointerEvent, origin geometry.Point2D) {
	if phase == PhaseUp {
		s.EndStroke()
		return
	}
	p, ok := geometry.Locate(ev, origin)
	if !ok {
		return
	}
	if phase == PhaseDown {
		s.BeginStroke(p)
		return
	}
	s.ExtendStroke(p)
}

// State returns a copy of the current state.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the raster.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := image.NewRGBA(s.raster.Bounds())
	copy(cp.Pix, s.raster.Pix)
	return cp
}

// Export encodes the current raster as a PNG payload at its pixel size.
func (s *Surface) Export() (sketchimage.Payload, error) {
	return sketchimage.Encode(s.Snapshot())
}

// drawSegment rasterizes a round-capped line. Callers hold s.mu.
func (s *Surface) drawSegment(seg Segment) {
	poly := capsule(seg.From, seg.To, seg.Width/2)

	b := geometry.PolygonBounds(poly)
	box := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.Width))+1, int(math.Ceil(b.Y+b.Height))+1,
	).Intersect(s.raster.Bounds())
	if box.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	s.rast.Reset(box.Dx(), box.Dy())
	s.rast.DrawOp = draw.Over
	s.rast.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
	for _, p := range poly[1:] {
		s.rast.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	s.rast.ClosePath()
	s.rast.Draw(s.raster, box, image.NewUniform(seg.Color), image.Point{})
}

// capsule returns the outline of a segment of half-width r with round caps,
// as a single convex polygon.
func capsule(from, to geometry.Point2D, r float64) []geometry.Point2D {
	theta := math.Atan2(to.Y-from.Y, to.X-from.X)
	pts := make([]geometry.Point2D, 0, 2*(capSteps+1))
	for i := 0; i <= capSteps; i++ {
		a := theta - math.Pi/2 + math.Pi*float64(i)/capSteps
		pts = append(pts, geometry.NewPoint2D(to.X+r*math.Cos(a), to.Y+r*math.Sin(a)))
	}
	for i := 0; i <= capSteps; i++ {
		a := theta + math.Pi/2 + math.Pi*float64(i)/capSteps
		pts = append(pts, geometry.NewPoint2D(from.X+r*math.Cos(a), from.Y+r*math.Sin(a)))
	}
	return pts
}
