// Package canvas provides the fyne widgets for drawing strokes and framing
// an uploaded photo.
package canvas

import (
	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// pointerArea wraps a raster and forwards drag and wheel gestures.
type pointerArea struct {
	widget.BaseWidget
	raster *fynecanvas.Raster

	dragging bool

	onDragStart func(pos fyne.Position)
	onDrag      func(pos fyne.Position, delta fyne.Delta)
	onDragEnd   func()
	onScroll    func(dy float32)
	onLayout    func(size fyne.Size)
}

func newPointerArea(raster *fynecanvas.Raster) *pointerArea {
	pa := &pointerArea{raster: raster}
	pa.ExtendBaseWidget(pa)
	return pa
}

func (pa *pointerArea) CreateRenderer() fyne.WidgetRenderer {
	return &pointerAreaRenderer{area: pa}
}

func (pa *pointerArea) MinSize() fyne.Size {
	return pa.raster.MinSize()
}

func (pa *pointerArea) Dragged(ev *fyne.DragEvent) {
	if !pa.dragging {
		pa.dragging = true
		// The first event already carries one step of movement
		start := ev.Position.Subtract(ev.Dragged)
		if pa.onDragStart != nil {
			pa.onDragStart(start)
		}
	}
	if pa.onDrag != nil {
		pa.onDrag(ev.Position, ev.Dragged)
	}
}

func (pa *pointerArea) DragEnd() {
	if !pa.dragging {
		return
	}
	pa.dragging = false
	if pa.onDragEnd != nil {
		pa.onDragEnd()
	}
}

func (pa *pointerArea) Scrolled(ev *fyne.ScrollEvent) {
	if pa.onScroll != nil && ev.Scrolled.DY != 0 {
		pa.onScroll(ev.Scrolled.DY)
	}
}

type pointerAreaRenderer struct {
	area *pointerArea
}

func (r *pointerAreaRenderer) Layout(size fyne.Size) {
	r.area.raster.Resize(size)
	if r.area.onLayout != nil {
		r.area.onLayout(size)
	}
}

func (r *pointerAreaRenderer) MinSize() fyne.Size {
	return r.area.raster.MinSize()
}

func (r *pointerAreaRenderer) Refresh() {
	r.area.raster.Refresh()
}

func (r *pointerAreaRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.area.raster}
}

func (r *pointerAreaRenderer) Destroy() {}
