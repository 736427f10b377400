// Package acquire decides where the submitted image comes from: the stroke
// surface, or an uploaded photo that must pass through the cropper.
package acquire

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"mathsketch/internal/crop"
	sketchimage "mathsketch/internal/image"
	"mathsketch/pkg/geometry"

	"github.com/rs/zerolog/log"
)

// Mode is the active acquisition path.
type Mode int

const (
	ModeDrawing Mode = iota
	ModeUpload
)

func (m Mode) String() string {
	switch m {
	case ModeDrawing:
		return "drawing"
	case ModeUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// ErrCropPending is returned when the drawn image is requested while an
// uploaded photo is waiting to be cropped.
var ErrCropPending = errors.New("acquire: uploaded image is waiting for crop")

// ErrNotCropping is returned by CommitCrop outside upload mode.
var ErrNotCropping = errors.New("acquire: no uploaded image to crop")

// Drawing is the part of the stroke surface the selector needs.
type Drawing interface {
	Export() (sketchimage.Payload, error)
}

// Selector routes exactly one acquisition path into each payload.
type Selector struct {
	mu      sync.Mutex
	mode    Mode
	drawing Drawing
	cropper *crop.Cropper
	preview geometry.Size
	name    string
}

// NewSelector creates a selector in drawing mode.
func NewSelector(drawing Drawing, cropper *crop.Cropper) *Selector {
	return &Selector{drawing: drawing, cropper: cropper}
}

// SetPreviewSize sets the display size used when fitting uploads into the cropper.
func (s *Selector) SetPreviewSize(size geometry.Size) {
	s.mu.Lock()
	s.preview = size
	s.mu.Unlock()
}

// Mode returns the active acquisition path.
func (s *Selector) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// UploadName returns the name of the uploaded file being cropped.
func (s *Selector) UploadName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Cropper returns the cropper uploads are routed through.
func (s *Selector) Cropper() *crop.Cropper {
	return s.cropper
}

// UseDrawnImage encodes the stroke surface directly.
func (s *Selector) UseDrawnImage() (sketchimage.Payload, error) {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	if mode != ModeDrawing {
		return sketchimage.Payload{}, ErrCropPending
	}
	return s.drawing.Export()
}

// UseUploadedImage decodes an uploaded file and hands it to the cropper.
// On a decode failure the selector stays in its previous mode.
func (s *Selector) UseUploadedImage(r io.Reader, name string) error {
	src, err := sketchimage.Decode(r)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("rejecting upload")
		return fmt.Errorf("upload %q: %w", name, err)
	}

	s.mu.Lock()
	preview := s.preview
	s.mu.Unlock()

	if err := s.cropper.SetSource(src, preview); err != nil {
		return fmt.Errorf("upload %q: %w", name, err)
	}

	s.mu.Lock()
	s.mode = ModeUpload
	s.name = name
	s.mu.Unlock()

	log.Info().Str("file", name).Str("format", src.Format).
		Int("width", src.Width).Int("height", src.Height).
		Msg("upload routed to cropper")
	return nil
}

// CommitCrop produces the payload for the uploaded image from the cropper's
// current region.
func (s *Selector) CommitCrop() (sketchimage.Payload, error) {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	if mode != ModeUpload {
		return sketchimage.Payload{}, ErrNotCropping
	}
	return s.cropper.Commit()
}

// CancelCrop abandons the upload and returns to drawing mode.
func (s *Selector) CancelCrop() {
	s.cropper.Cancel()
	s.Reset()
}

// Reset returns to drawing mode.
func (s *Selector) Reset() {
	s.mu.Lock()
	s.mode = ModeDrawing
	s.name = ""
	s.mu.Unlock()
}
