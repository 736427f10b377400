package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"mathsketch/pkg/geometry"
)

// MIMEType is the only payload type the relay accepts.
const MIMEType = "image/png"

// DefaultFilename is the multipart filename used for drawings.
const DefaultFilename = "drawing.png"

// Payload is the canonical encoded image handed to the submission client.
// A payload is built fresh for every submission attempt.
type Payload struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	Filename string
}

// Size returns the payload size in bytes.
func (p Payload) Size() int {
	return len(p.Data)
}

var errNoImage = errors.New("no image")

// Encode rasterizes the whole of src into a PNG payload.
func Encode(src image.Image) (Payload, error) {
	if src == nil {
		return Payload{}, &EncodingError{Err: errNoImage}
	}
	b := src.Bounds()
	return EncodeRegion(src, geometry.RectInt{
		X:      0,
		Y:      0,
		Width:  b.Dx(),
		Height: b.Dy(),
	})
}

// EncodeRegion rasterizes exactly the given sub-rectangle of src into a PNG
// payload. The region is relative to the top-left corner of src's bounds and
// must lie fully inside them. The aspect ratio is not checked here.
func EncodeRegion(src image.Image, region geometry.RectInt) (Payload, error) {
	if src == nil {
		return Payload{}, &EncodingError{Err: errNoImage}
	}
	if region.Empty() {
		return Payload{}, &EncodingError{Err: fmt.Errorf("zero-sized region %dx%d", region.Width, region.Height)}
	}
	b := src.Bounds()
	if !region.Within(b.Dx(), b.Dy()) {
		return Payload{}, &EncodingError{Err: fmt.Errorf("region %+v outside %dx%d image", region, b.Dx(), b.Dy())}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, region.Width, region.Height))
	srcPt := b.Min.Add(image.Pt(region.X, region.Y))
	draw.Draw(dst, dst.Bounds(), src, srcPt, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Payload{}, &EncodingError{Err: err}
	}

	return Payload{
		Data:     buf.Bytes(),
		MIMEType: MIMEType,
		Width:    region.Width,
		Height:   region.Height,
		Filename: DefaultFilename,
	}, nil
}
