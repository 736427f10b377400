package crop

import (
	"errors"
	"image"
	"sync"

	sketchimage "mathsketch/internal/image"
	"mathsketch/pkg/geometry"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
)

var (
	// ErrNoSource is returned when committing before a source is loaded.
	ErrNoSource = errors.New("crop: no source image")

	// ErrNoRegion is returned when committing after Cancel discarded the region.
	ErrNoRegion = errors.New("crop: no crop region")
)

// Cropper tracks pan and zoom over a source image and produces the pixel
// crop on commit. All methods are safe for concurrent use.
type Cropper struct {
	mu        sync.Mutex
	aspect    float64
	source    sketchimage.Source
	hasSource bool
	frame     Frame
	state     State
	region    Region
	hasRegion bool
	last      sketchimage.Payload
	hasLast   bool

	// OnCropComplete is called with the re-derived region after every pan
	// or zoom change.
	OnCropComplete func(Region)
}

// New creates a cropper with the given width:height aspect ratio.
// A non-positive aspect selects DefaultAspect.
func New(aspect float64) *Cropper {
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	return &Cropper{aspect: aspect, state: InitialState()}
}

// Aspect returns the crop box width:height ratio.
func (c *Cropper) Aspect() float64 {
	return c.aspect
}

// SetSource loads a new source image whose crop box is shown in a preview
// frame of the given size, resetting pan and zoom.
func (c *Cropper) SetSource(src sketchimage.Source, preview geometry.Size) error {
	if src.Empty() {
		return &sketchimage.DecodeError{Err: errors.New("empty source image")}
	}
	c.mu.Lock()
	c.source = src
	c.hasSource = true
	c.frame = NewFrame(geometry.NewSize(float64(src.Width), float64(src.Height)), preview, c.aspect)
	c.state = InitialState()
	c.mu.Unlock()

	log.Debug().Int("width", src.Width).Int("height", src.Height).Str("format", src.Format).Msg("crop source loaded")
	c.update(func(s State) State { return s })
	return nil
}

// SetPreviewSize refits the preview without changing pan or zoom.
func (c *Cropper) SetPreviewSize(preview geometry.Size) {
	c.mu.Lock()
	if !c.hasSource {
		c.mu.Unlock()
		return
	}
	c.frame = NewFrame(c.frame.Source, preview, c.aspect)
	c.mu.Unlock()
	c.update(func(s State) State { return s })
}

// SetCrop sets the pan offset in preview pixels.
func (c *Cropper) SetCrop(pan geometry.Point2D) {
	c.update(func(s State) State {
		s.Pan = pan
		return s
	})
}

// Drag moves the pan offset by a preview-space delta.
func (c *Cropper) Drag(delta geometry.Point2D) {
	c.update(func(s State) State {
		s.Pan = s.Pan.Add(delta)
		return s
	})
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (c *Cropper) SetZoom(zoom float64) {
	c.update(func(s State) State {
		s.Zoom = zoom
		return s
	})
}

// ZoomBy multiplies the zoom factor by f.
func (c *Cropper) ZoomBy(f float64) {
	c.update(func(s State) State {
		s.Zoom *= f
		return s
	})
}

// ZoomIn increases zoom by one step.
func (c *Cropper) ZoomIn() { c.ZoomBy(ZoomStep) }

// ZoomOut decreases zoom by one step.
func (c *Cropper) ZoomOut() { c.ZoomBy(1 / ZoomStep) }

// update applies fn, restricts the result and re-derives the region.
func (c *Cropper) update(fn func(State) State) {
	c.mu.Lock()
	if !c.hasSource {
		c.mu.Unlock()
		return
	}
	c.state = c.frame.Restrict(fn(c.state))
	c.region = c.frame.Region(c.state)
	c.hasRegion = true
	region, cb := c.region, c.OnCropComplete
	c.mu.Unlock()

	if cb != nil {
		cb(region)
	}
}

// State returns the current pan and zoom.
func (c *Cropper) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Region returns the last derived crop region.
func (c *Cropper) Region() (Region, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region, c.hasRegion
}

// Source returns the loaded source image.
func (c *Cropper) Source() (sketchimage.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source, c.hasSource
}

// Commit encodes exactly the last reported region of the source.
func (c *Cropper) Commit() (sketchimage.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSource {
		return sketchimage.Payload{}, ErrNoSource
	}
	if !c.hasRegion {
		return sketchimage.Payload{}, ErrNoRegion
	}

	payload, err := sketchimage.EncodeRegion(c.source.Image, c.region)
	if err != nil {
		return sketchimage.Payload{}, err
	}
	payload.Filename = "crop.png"
	c.last = payload
	c.hasLast = true
	log.Debug().
		Int("x", c.region.X).Int("y", c.region.Y).
		Int("width", c.region.Width).Int("height", c.region.Height).
		Int("bytes", payload.Size()).
		Msg("crop committed")
	return payload, nil
}

// Cancel resets pan to the origin and zoom to 1 and discards the region.
// A payload from an earlier Commit is kept.
func (c *Cropper) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = InitialState()
	c.region = Region{}
	c.hasRegion = false
}

// LastCommitted returns the payload produced by the most recent Commit.
func (c *Cropper) LastCommitted() (sketchimage.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

// Preview renders the current crop region scaled to size for display.
// It returns nil when there is no source or region.
func (c *Cropper) Preview(size image.Point) image.Image {
	c.mu.Lock()
	src, region, ok := c.source.Image, c.region, c.hasSource && c.hasRegion
	c.mu.Unlock()
	if !ok || size.X <= 0 || size.Y <= 0 {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	srcRect := region.Image().Add(src.Bounds().Min)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, srcRect, xdraw.Src, nil)
	return dst
}
