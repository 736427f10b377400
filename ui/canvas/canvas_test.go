package canvas

import (
	"image"
	"image/color"
	"testing"

	"mathsketch/internal/crop"
	sketchimage "mathsketch/internal/image"
	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeSurface(t *testing.T) {
	s := surface.New(40, 20)
	out := composeSurface(s.Snapshot(), 60, 30)

	assert.Equal(t, image.Rect(0, 0, 60, 30), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.At(10, 10))
	assert.Equal(t, gutter, out.At(50, 25))
}

func TestSurfaceFollowsWindowWidth(t *testing.T) {
	s := surface.New(10, 10)
	sc := NewSurfaceCanvas(s)

	window := float32(1030)
	sc.viewport = func() float32 { return window }

	// The padded widget is narrower than the 1024 breakpoint, the window is not.
	sc.layout(fyne.NewSize(1014, 400))
	assert.Equal(t, 1000, s.State().Width)

	window = 1020
	sc.layout(fyne.NewSize(1004, 400))
	assert.Equal(t, 600, s.State().Width)

	window = 0
	sc.layout(fyne.NewSize(500, 400))
	assert.Equal(t, 450, s.State().Width)
}

func TestFrameRect(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{"width bound", image.Rect(0, 0, 400, 400), image.Rect(20, 65, 380, 335)},
		{"height bound", image.Rect(0, 0, 800, 300), image.Rect(220, 15, 580, 285)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frameRect(tt.bounds, crop.DefaultAspect))
		})
	}
}

func TestRenderCropShowsRegionInsideFrame(t *testing.T) {
	// Left half red, right half blue
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 100 {
				c = color.RGBA{B: 255, A: 255}
			}
			src.SetRGBA(x, y, c)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, 200, 200))
	renderCrop(out, src, crop.Region{X: 120, Y: 0, Width: 80, Height: 60}, crop.DefaultAspect)

	frame := frameRect(out.Bounds(), crop.DefaultAspect)
	mid := out.RGBAAt((frame.Min.X+frame.Max.X)/2, (frame.Min.Y+frame.Max.Y)/2)
	assert.Equal(t, uint8(255), mid.B)
	assert.Zero(t, mid.R)

	assert.Equal(t, frameColor, out.RGBAAt(frame.Min.X, frame.Min.Y))

	corner := out.RGBAAt(0, 0)
	assert.Equal(t, backdrop.R/2, corner.R)
}

func TestDragMovesPhotoWithPointer(t *testing.T) {
	widget := fyne.NewSize(480, 360)
	bounds := image.Rect(0, 0, 480, 360)
	frame := frameRect(bounds, crop.DefaultAspect)
	assert.Equal(t, geometry.NewSize(float64(frame.Dx()), float64(frame.Dy())), PreviewSize(widget, crop.DefaultAspect))

	sources := map[string]image.Rectangle{
		"wide":     image.Rect(0, 0, 1000, 300),
		"tall":     image.Rect(0, 0, 300, 900),
		"matching": image.Rect(0, 0, 800, 600),
	}
	for name, r := range sources {
		t.Run(name, func(t *testing.T) {
			c := crop.New(crop.DefaultAspect)
			require.NoError(t, c.SetSource(sketchimage.NewSource(image.NewRGBA(r)), PreviewSize(widget, c.Aspect())))
			c.SetZoom(2)
			before, _ := c.Region()

			c.Drag(geometry.NewPoint2D(30, 20))
			after, _ := c.Region()

			// Display pixels per source pixel, as renderCrop draws it.
			k := float64(frame.Dx()) / float64(before.Width)
			assert.InDelta(t, 30, float64(before.X-after.X)*k, k+0.5)
			assert.InDelta(t, 20, float64(before.Y-after.Y)*k, k+0.5)
		})
	}
}
