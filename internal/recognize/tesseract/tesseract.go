//go:build tesseract

// Package tesseract provides a local recognizer backed by Tesseract OCR. It
// needs libtesseract at build time and is only compiled with the
// "tesseract" build tag.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mathsketch/internal/recognize"

	"github.com/otiai10/gosseract/v2"
)

// Backend is the registry name of this recognizer.
const Backend = "tesseract"

// MathChars is the character set handwritten expressions are drawn from.
const MathChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+-*/=^()[]{}<>.,:!√πΣ∫"

// Engine runs Tesseract on submitted images. The underlying client is not
// safe for concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func init() {
	recognize.Register(Backend, func(ctx context.Context, opts recognize.Options) (recognize.Recognizer, error) {
		return NewEngine()
	})
}

// NewEngine creates a Tesseract engine configured for single-line math.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Expressions are not dictionary words
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := client.SetWhitelist(MathChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize runs OCR over the whole image.
func (e *Engine) Recognize(ctx context.Context, img recognize.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(img.Data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	// Collapse line breaks and runs of spaces
	return strings.Join(strings.Fields(text), " "), nil
}
