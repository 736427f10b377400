// Package image provides source image decoding and canonical PNG encoding.
package image

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Source is a decoded image together with its pixel dimensions.
type Source struct {
	Image  image.Image
	Width  int
	Height int
	Format string // Decoder name, e.g. "png" or "jpeg"
}

// NewSource wraps an already decoded image.
func NewSource(img image.Image) Source {
	b := img.Bounds()
	return Source{Image: img, Width: b.Dx(), Height: b.Dy()}
}

// Bounds returns the source's pixel rectangle.
func (s Source) Bounds() image.Rectangle {
	if s.Image == nil {
		return image.Rectangle{}
	}
	return s.Image.Bounds()
}

// Empty reports whether the source carries no pixels.
func (s Source) Empty() bool {
	return s.Image == nil || s.Width <= 0 || s.Height <= 0
}

// Decode reads an image in any registered format (PNG, JPEG, WebP, TIFF, BMP).
func Decode(r io.Reader) (Source, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(16)

	img, format, err := image.Decode(br)
	if err != nil {
		if isHEIF(head) {
			return Source{}, &DecodeError{Format: "heic", Err: fmt.Errorf("unsupported format")}
		}
		return Source{}, &DecodeError{Err: err}
	}

	src := NewSource(img)
	src.Format = format
	if src.Empty() {
		return Source{}, &DecodeError{Format: format, Err: fmt.Errorf("image has no pixels")}
	}
	return src, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (Source, error) {
	return Decode(bytes.NewReader(data))
}

// Load decodes the image file at path.
func Load(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// isHEIF recognises the ftyp box used by HEIC/HEIF photos from phone cameras.
func isHEIF(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	switch string(head[8:12]) {
	case "heic", "heix", "hevc", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}

// SupportedFormats returns the list of supported upload extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".webp", ".tif", ".tiff", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
