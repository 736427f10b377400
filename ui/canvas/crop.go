package canvas

import (
	"image"
	"image/color"

	"mathsketch/internal/crop"
	"mathsketch/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var (
	backdrop   = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF}
	frameColor = color.RGBA{R: 0x00, G: 0xBC, B: 0xD4, A: 0xFF}
)

// CropCanvas shows an uploaded photo under a fixed crop frame. Dragging
// pans the photo and the wheel zooms.
type CropCanvas struct {
	cropper *crop.Cropper
	raster  *fynecanvas.Raster
	area    *pointerArea

	size fyne.Size
}

// PreviewSize returns the size of the crop frame drawn inside a widget of
// the given size. The cropper measures pan against it.
func PreviewSize(size fyne.Size, aspect float64) geometry.Size {
	r := frameRect(image.Rect(0, 0, int(size.Width), int(size.Height)), aspect)
	return geometry.NewSize(float64(r.Dx()), float64(r.Dy()))
}

// NewCropCanvas creates a widget bound to c.
func NewCropCanvas(c *crop.Cropper, minSize fyne.Size) *CropCanvas {
	cc := &CropCanvas{cropper: c, size: minSize}

	cc.raster = fynecanvas.NewRaster(cc.draw)
	cc.raster.SetMinSize(minSize)

	cc.area = newPointerArea(cc.raster)
	cc.area.onDrag = func(_ fyne.Position, d fyne.Delta) {
		c.Drag(geometry.NewPoint2D(float64(d.DX), float64(d.DY)))
		cc.Refresh()
	}
	cc.area.onScroll = func(dy float32) {
		if dy > 0 {
			c.ZoomIn()
		} else {
			c.ZoomOut()
		}
		cc.Refresh()
	}
	cc.area.onLayout = func(size fyne.Size) {
		if size != cc.size && size.Width > 0 && size.Height > 0 {
			cc.size = size
			c.SetPreviewSize(PreviewSize(size, c.Aspect()))
		}
	}
	return cc
}

// Container returns the widget for embedding in layouts.
func (cc *CropCanvas) Container() fyne.CanvasObject {
	return cc.area
}

// Refresh redraws the photo and frame.
func (cc *CropCanvas) Refresh() {
	cc.raster.Refresh()
}

func (cc *CropCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	src, ok := cc.cropper.Source()
	region, hasRegion := cc.cropper.Region()
	if !ok || !hasRegion {
		fill(out, out.Bounds(), backdrop)
		return out
	}
	renderCrop(out, src.Image, region, cc.cropper.Aspect())
	return out
}

// frameRect returns the largest rectangle of the given aspect that fits
// inside bounds with a margin, centred.
func frameRect(bounds image.Rectangle, aspect float64) image.Rectangle {
	const margin = 0.9
	bw, bh := float64(bounds.Dx())*margin, float64(bounds.Dy())*margin
	fw, fh := bw, bw/aspect
	if fh > bh {
		fh, fw = bh, bh*aspect
	}
	cx, cy := float64(bounds.Min.X)+float64(bounds.Dx())/2, float64(bounds.Min.Y)+float64(bounds.Dy())/2
	return image.Rect(int(cx-fw/2), int(cy-fh/2), int(cx+fw/2), int(cy+fh/2))
}

// renderCrop draws src scaled so that region fills the frame, dims the
// surroundings and outlines the frame.
func renderCrop(out *image.RGBA, src image.Image, region crop.Region, aspect float64) {
	fill(out, out.Bounds(), backdrop)
	if region.Width <= 0 || region.Height <= 0 {
		return
	}
	frame := frameRect(out.Bounds(), aspect)
	k := float64(frame.Dx()) / float64(region.Width)

	sb := src.Bounds()
	rx := float64(sb.Min.X + region.X)
	ry := float64(sb.Min.Y + region.Y)
	s2d := f64.Aff3{
		k, 0, float64(frame.Min.X) - k*rx,
		0, k, float64(frame.Min.Y) - k*ry,
	}
	xdraw.ApproxBiLinear.Transform(out, s2d, src, sb, xdraw.Over, nil)

	dimOutside(out, frame)
	outline(out, frame, frameColor, 2)
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	xdraw.Draw(img, r, image.NewUniform(c), image.Point{}, xdraw.Src)
}

// dimOutside halves the brightness of every pixel outside r.
func dimOutside(img *image.RGBA, r image.Rectangle) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(r) {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i] /= 2
			img.Pix[i+1] /= 2
			img.Pix[i+2] /= 2
		}
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	u := image.NewUniform(c)
	t := thickness
	xdraw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), u, image.Point{}, xdraw.Src)
	xdraw.Draw(img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), u, image.Point{}, xdraw.Src)
	xdraw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), u, image.Point{}, xdraw.Src)
	xdraw.Draw(img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, xdraw.Src)
}
