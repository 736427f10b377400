package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
)

// gutter fills the part of the widget not covered by the surface.
var gutter = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}

// SurfaceCanvas displays a stroke surface and feeds it pointer input.
type SurfaceCanvas struct {
	surface *surface.Surface
	raster  *fynecanvas.Raster
	area    *pointerArea

	// viewport reports the window canvas width; zero means unknown.
	viewport  func() float32
	lastWidth float32
}

// NewSurfaceCanvas creates a widget bound to s.
func NewSurfaceCanvas(s *surface.Surface) *SurfaceCanvas {
	sc := &SurfaceCanvas{surface: s}

	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.raster.ScaleMode = fynecanvas.ImageScalePixels
	sc.raster.SetMinSize(fyne.NewSize(200, float32(s.State().Height)))

	sc.area = newPointerArea(sc.raster)
	sc.area.onDragStart = func(pos fyne.Position) {
		s.Pointer(surface.PhaseDown, mouseAt(pos), geometry.Point2D{})
	}
	sc.area.onDrag = func(pos fyne.Position, _ fyne.Delta) {
		s.Pointer(surface.PhaseMove, mouseAt(pos), geometry.Point2D{})
	}
	sc.area.onDragEnd = func() {
		s.Pointer(surface.PhaseUp, geometry.PointerEvent{}, geometry.Point2D{})
	}
	sc.area.onLayout = sc.layout
	sc.viewport = sc.windowWidth

	return sc
}

// Container returns the widget for embedding in layouts.
func (sc *SurfaceCanvas) Container() fyne.CanvasObject {
	return sc.area
}

// Refresh redraws from the surface raster.
func (sc *SurfaceCanvas) Refresh() {
	sc.raster.Refresh()
}

// layout sizes the surface for the window width, which is what the
// breakpoints refer to. The widget width stands in until the widget is
// attached to a window.
func (sc *SurfaceCanvas) layout(size fyne.Size) {
	if size.Width <= 0 {
		return
	}
	width := size.Width
	if vw := sc.viewport(); vw > 0 {
		width = vw
	}
	if width == sc.lastWidth {
		return
	}
	sc.lastWidth = width
	sc.surface.Resize(float64(width))
	sc.raster.SetMinSize(fyne.NewSize(200, float32(sc.surface.State().Height)))
}

func (sc *SurfaceCanvas) windowWidth() float32 {
	a := fyne.CurrentApp()
	if a == nil {
		return 0
	}
	c := a.Driver().CanvasForObject(sc.area)
	if c == nil {
		return 0
	}
	return c.Size().Width
}

func (sc *SurfaceCanvas) draw(w, h int) image.Image {
	return composeSurface(sc.surface.Snapshot(), w, h)
}

// composeSurface places the surface raster at the top-left of a w×h image
// filled with the gutter colour.
func composeSurface(raster *image.RGBA, w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(gutter), image.Point{}, draw.Src)
	draw.Draw(out, raster.Bounds(), raster, raster.Bounds().Min, draw.Src)
	return out
}

func mouseAt(pos fyne.Position) geometry.PointerEvent {
	return geometry.MouseAt(float64(pos.X), float64(pos.Y))
}
