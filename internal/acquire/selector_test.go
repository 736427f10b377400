package acquire

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"mathsketch/internal/crop"
	sketchimage "mathsketch/internal/image"
	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegPhoto(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x * y) % 255)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &buf
}

func TestUseDrawnImage(t *testing.T) {
	s := NewSelector(surface.NewForViewport(1280), crop.New(crop.DefaultAspect))
	p, err := s.UseDrawnImage()
	require.NoError(t, err)
	assert.Equal(t, 1000, p.Width)
	assert.Equal(t, 400, p.Height)
	assert.Equal(t, ModeDrawing, s.Mode())
}

func TestUploadRoutesThroughCropper(t *testing.T) {
	c := crop.New(crop.DefaultAspect)
	s := NewSelector(surface.New(100, 100), c)
	s.SetPreviewSize(geometry.NewSize(320, 240))

	require.NoError(t, s.UseUploadedImage(jpegPhoto(t, 640, 480), "board.jpg"))
	assert.Equal(t, ModeUpload, s.Mode())
	assert.Equal(t, "board.jpg", s.UploadName())

	_, err := s.UseDrawnImage()
	assert.ErrorIs(t, err, ErrCropPending)

	c.SetZoom(2)
	p, err := s.CommitCrop()
	require.NoError(t, err)
	assert.Equal(t, 320, p.Width)
	assert.Equal(t, 240, p.Height)
}

func TestBadUploadKeepsPreviousMode(t *testing.T) {
	s := NewSelector(surface.New(100, 100), crop.New(crop.DefaultAspect))

	err := s.UseUploadedImage(strings.NewReader("GIF89a but not really"), "fake.gif")
	var decErr *sketchimage.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, ModeDrawing, s.Mode())

	_, err = s.UseDrawnImage()
	assert.NoError(t, err)
}

func TestCommitCropOutsideUpload(t *testing.T) {
	s := NewSelector(surface.New(10, 10), crop.New(crop.DefaultAspect))
	_, err := s.CommitCrop()
	assert.ErrorIs(t, err, ErrNotCropping)
}

func TestCancelCropReturnsToDrawing(t *testing.T) {
	c := crop.New(crop.DefaultAspect)
	s := NewSelector(surface.New(50, 50), c)
	require.NoError(t, s.UseUploadedImage(jpegPhoto(t, 80, 60), "a.jpg"))
	c.SetZoom(2)

	s.CancelCrop()
	assert.Equal(t, ModeDrawing, s.Mode())
	assert.Equal(t, 1.0, c.State().Zoom)

	p, err := s.UseDrawnImage()
	require.NoError(t, err)
	assert.Equal(t, 50, p.Width)
}
