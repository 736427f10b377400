// Package app provides the drawing session: the stroke surface, the
// acquisition path, the relay client and the events that tie them to a UI.
package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"mathsketch/internal/acquire"
	"mathsketch/internal/crop"
	sketchimage "mathsketch/internal/image"
	"mathsketch/internal/submit"
	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"github.com/rs/zerolog/log"
)

// ErrNoRelay is returned when a submission is attempted before a relay
// client has been configured or discovered.
var ErrNoRelay = errors.New("no relay configured")

// EventType identifies different session events.
type EventType int

const (
	EventSurfaceChanged    EventType = iota // data: nil
	EventCleared                            // data: nil
	EventModeChanged                        // data: acquire.Mode
	EventCropChanged                        // data: crop.Region
	EventSubmissionChanged                  // data: submit.State
	EventRelayChanged                       // data: string base URL
	EventError                              // data: error
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds one drawing session.
type State struct {
	mu sync.RWMutex

	Surface  *surface.Surface
	Cropper  *crop.Cropper
	Selector *acquire.Selector

	client *submit.Client

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates a session around surf. client may be nil and set later
// with SetClient.
func NewState(surf *surface.Surface, client *submit.Client) *State {
	cropper := crop.New(crop.DefaultAspect)
	s := &State{
		Surface:   surf,
		Cropper:   cropper,
		Selector:  acquire.NewSelector(surf, cropper),
		listeners: make(map[EventType][]EventListener),
	}

	surf.OnChange = func() { s.Emit(EventSurfaceChanged, nil) }
	surf.OnClear = s.onCleared
	cropper.OnCropComplete = func(r crop.Region) { s.Emit(EventCropChanged, r) }

	s.SetClient(client)
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetClient replaces the relay client. The previous client's state is
// abandoned.
func (s *State) SetClient(client *submit.Client) {
	s.mu.Lock()
	old := s.client
	s.client = client
	s.mu.Unlock()

	if old != nil {
		old.OnChange = nil
		old.Reset()
	}
	if client == nil {
		return
	}
	client.OnChange = func(st submit.State) { s.Emit(EventSubmissionChanged, st) }
	s.Emit(EventRelayChanged, client.BaseURL())
	s.Emit(EventSubmissionChanged, client.State())
}

// Client returns the relay client, or nil.
func (s *State) Client() *submit.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Submission returns the live submission state.
func (s *State) Submission() submit.State {
	if c := s.Client(); c != nil {
		return c.State()
	}
	return submit.State{}
}

// Clear wipes the surface. The displayed result is discarded with it.
func (s *State) Clear() {
	s.Surface.Clear()
}

func (s *State) onCleared() {
	if c := s.Client(); c != nil {
		c.Reset()
	}
	s.Emit(EventCleared, nil)
}

// Calculate submits the drawn image.
func (s *State) Calculate(ctx context.Context) (*submit.Task, error) {
	if s.Selector.Mode() != acquire.ModeDrawing {
		return nil, acquire.ErrCropPending
	}
	return s.submit(ctx, s.Selector.UseDrawnImage)
}

// OpenUpload decodes an uploaded photo and routes it to the cropper.
func (s *State) OpenUpload(r io.Reader, name string, preview geometry.Size) error {
	s.Selector.SetPreviewSize(preview)
	if err := s.Selector.UseUploadedImage(r, name); err != nil {
		s.Emit(EventError, err)
		return err
	}
	s.Emit(EventModeChanged, acquire.ModeUpload)
	if r, ok := s.Cropper.Region(); ok {
		s.Emit(EventCropChanged, r)
	}
	return nil
}

// CommitCrop submits the cropped region and returns to drawing mode. On
// failure the upload stays in the cropper.
func (s *State) CommitCrop(ctx context.Context) (*submit.Task, error) {
	if s.Selector.Mode() != acquire.ModeUpload {
		return nil, acquire.ErrNotCropping
	}
	task, err := s.submit(ctx, s.Selector.CommitCrop)
	if err != nil {
		return nil, err
	}
	s.Selector.Reset()
	s.Emit(EventModeChanged, acquire.ModeDrawing)
	return task, nil
}

// CancelCrop abandons the upload and returns to drawing mode.
func (s *State) CancelCrop() {
	s.Selector.CancelCrop()
	s.Emit(EventModeChanged, acquire.ModeDrawing)
}

func (s *State) submit(ctx context.Context, encode func() (sketchimage.Payload, error)) (*submit.Task, error) {
	c := s.Client()
	if c == nil {
		s.Emit(EventError, ErrNoRelay)
		return nil, ErrNoRelay
	}
	task, err := c.SubmitFrom(ctx, encode)
	if err != nil {
		log.Warn().Err(err).Msg("submission not started")
		s.Emit(EventError, err)
	}
	return task, err
}
