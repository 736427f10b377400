// Package surface implements the freehand stroke surface: pointer-driven
// strokes rasterized onto a fixed-size canvas with a white background.
package surface

import (
	"image/color"
	"math"

	"mathsketch/pkg/geometry"
)

const (
	// DefaultStrokeWidth is the pen width in pixels.
	DefaultStrokeWidth = 3.0

	// EraserWidth is the width of the background-coloured eraser stroke.
	EraserWidth = 10.0

	// WideViewport is the viewport width above which the surface uses its
	// fixed wide size.
	WideViewport = 1024

	wideWidth   = 1000
	narrowMax   = 600
	narrowRatio = 0.9
	fixedHeight = 400
)

// Background is the blank surface colour. The eraser paints with it.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Mode tells whether a stroke is in progress.
type Mode int

const (
	ModeIdle Mode = iota
	ModeStroking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeStroking:
		return "Stroking"
	default:
		return "Unknown"
	}
}

// State is the surface's value state. It never references the raster.
type State struct {
	Width       int
	Height      int
	Mode        Mode
	Color       color.RGBA
	StrokeWidth float64
	Erase       bool
	Last        geometry.Point2D // last point of the active stroke
}

// NewState returns the initial state for a surface of the given size.
func NewState(width, height int) State {
	return State{
		Width:       width,
		Height:      height,
		Mode:        ModeIdle,
		Color:       Black,
		StrokeWidth: DefaultStrokeWidth,
	}
}

// EventKind identifies a surface event.
type EventKind int

const (
	EventBegin EventKind = iota
	EventExtend
	EventEnd
	EventClear
	EventSetColor
	EventSetEraser
	EventSetWidth
	EventResize
)

// Event is an input to Reduce.
type Event struct {
	Kind  EventKind
	Point geometry.Point2D // Begin, Extend
	Color color.RGBA       // SetColor
	Width float64          // SetWidth: stroke width; Resize: viewport width
}

// Segment is a line that a transition asks the raster to draw.
type Segment struct {
	From  geometry.Point2D
	To    geometry.Point2D
	Color color.RGBA
	Width float64
}

// Reduce applies ev to s and returns the next state plus the segment to
// rasterize, if any. It has no side effects.
func Reduce(s State, ev Event) (State, *Segment) {
	switch ev.Kind {
	case EventBegin:
		s.Mode = ModeStroking
		s.Last = ev.Point
		return s, nil

	case EventExtend:
		if s.Mode != ModeStroking {
			return s, nil
		}
		seg := &Segment{From: s.Last, To: ev.Point, Color: s.Color, Width: s.StrokeWidth}
		if s.Erase {
			seg.Color = Background
			seg.Width = EraserWidth
		}
		s.Last = ev.Point
		return s, seg

	case EventEnd:
		s.Mode = ModeIdle
		return s, nil

	case EventClear:
		s.Mode = ModeIdle
		s.Last = geometry.Point2D{}
		return s, nil

	case EventSetColor:
		s.Color = ev.Color
		s.Erase = false
		return s, nil

	case EventSetEraser:
		s.Erase = true
		return s, nil

	case EventSetWidth:
		if ev.Width > 0 {
			s.StrokeWidth = ev.Width
		}
		return s, nil

	case EventResize:
		s.Width, s.Height = Dimensions(ev.Width)
		s.Mode = ModeIdle
		s.Last = geometry.Point2D{}
		return s, nil
	}
	return s, nil
}

// Dimensions returns the surface pixel size for a viewport width: a fixed
// 1000x400 on wide viewports, otherwise min(90% of the viewport, 600) x 400.
func Dimensions(viewportWidth float64) (width, height int) {
	if viewportWidth > WideViewport {
		return wideWidth, fixedHeight
	}
	w := math.Min(narrowRatio*viewportWidth, narrowMax)
	if w < 1 {
		w = 1
	}
	return int(math.Floor(w)), fixedHeight
}
