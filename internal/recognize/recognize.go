// Package recognize turns image bytes into text. The relay depends only on
// the Recognizer interface; backends register themselves by name.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Prompt is the instruction sent alongside every image.
const Prompt = "What is this equation?"

// DefaultMIMEType is assumed when the upload's type cannot be sniffed.
const DefaultMIMEType = "image/png"

// Image is the input to a recognizer.
type Image struct {
	Data     []byte
	MIMEType string
}

// SniffImage builds an Image from raw bytes, detecting the MIME type from
// the content. Formats the sniffer does not know, such as HEIC, are
// accepted when declared is an image type. It reports false when the bytes
// are not an image.
func SniffImage(data []byte, declared string) (Image, bool) {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return Image{Data: data, MIMEType: sniffed}, true
	}
	if strings.HasPrefix(declared, "image/") {
		return Image{Data: data, MIMEType: declared}, true
	}
	return Image{}, false
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, img Image) (string, error)

func (f Func) Recognize(ctx context.Context, img Image) (string, error) {
	return f(ctx, img)
}

// Options configures a backend.
type Options struct {
	APIKey string
	Model  string
}

// Factory constructs a recognizer backend.
type Factory func(ctx context.Context, opts Options) (Recognizer, error)

// ErrUnknownBackend is returned by New for an unregistered name.
var ErrUnknownBackend = errors.New("unknown recognizer backend")

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available to New. Registering a name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("recognize: Register called twice for " + name)
	}
	registry[name] = f
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named backend.
func New(ctx context.Context, name string, opts Options) (Recognizer, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(Backends(), ", "))
	}
	return f(ctx, opts)
}
