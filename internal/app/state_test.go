package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mathsketch/internal/acquire"
	"mathsketch/internal/submit"
	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relay(t *testing.T, result string) *submit.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"` + result + `"}`))
	}))
	t.Cleanup(srv.Close)
	c, err := submit.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return c
}

func waitTask(t *testing.T, task *submit.Task) submit.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := task.Wait(ctx)
	require.NoError(t, err)
	return st
}

func photo(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestCalculateWithoutRelay(t *testing.T) {
	s := NewState(surface.New(20, 20), nil)
	var got []interface{}
	s.On(EventError, func(d interface{}) { got = append(got, d) })

	_, err := s.Calculate(context.Background())
	assert.ErrorIs(t, err, ErrNoRelay)
	assert.Equal(t, []interface{}{ErrNoRelay}, got)
}

func TestCalculateAndClear(t *testing.T) {
	s := NewState(surface.New(50, 20), relay(t, "x = 5"))

	var mu sync.Mutex
	var phases []submit.Phase
	s.On(EventSubmissionChanged, func(d interface{}) {
		mu.Lock()
		phases = append(phases, d.(submit.State).Phase)
		mu.Unlock()
	})
	cleared := 0
	s.On(EventCleared, func(interface{}) { cleared++ })

	s.Surface.BeginStroke(geometry.NewPoint2D(2, 2))
	s.Surface.ExtendStroke(geometry.NewPoint2D(40, 10))
	s.Surface.EndStroke()

	task, err := s.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x = 5", waitTask(t, task).Text)
	assert.Equal(t, submit.PhaseSucceeded, s.Submission().Phase)

	s.Clear()
	assert.Equal(t, 1, cleared)
	assert.Equal(t, submit.PhaseIdle, s.Submission().Phase)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []submit.Phase{submit.PhasePending, submit.PhaseSucceeded, submit.PhaseIdle}, phases)
}

func TestUploadCropFlow(t *testing.T) {
	s := NewState(surface.New(50, 20), relay(t, "2+2"))

	var modes []acquire.Mode
	s.On(EventModeChanged, func(d interface{}) { modes = append(modes, d.(acquire.Mode)) })
	crops := 0
	s.On(EventCropChanged, func(interface{}) { crops++ })

	require.NoError(t, s.OpenUpload(photo(t, 400, 300), "p.png", geometry.NewSize(200, 150)))
	assert.Equal(t, acquire.ModeUpload, s.Selector.Mode())
	assert.Positive(t, crops)

	_, err := s.Calculate(context.Background())
	assert.ErrorIs(t, err, acquire.ErrCropPending)

	task, err := s.CommitCrop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2+2", waitTask(t, task).Text)
	assert.Equal(t, acquire.ModeDrawing, s.Selector.Mode())
	assert.Equal(t, []acquire.Mode{acquire.ModeUpload, acquire.ModeDrawing}, modes)

	last, ok := s.Cropper.LastCommitted()
	require.True(t, ok)
	assert.Equal(t, 400, last.Width)
	assert.Equal(t, 300, last.Height)
}

func TestCancelCrop(t *testing.T) {
	s := NewState(surface.New(50, 20), nil)
	require.NoError(t, s.OpenUpload(photo(t, 40, 30), "p.png", geometry.NewSize(40, 30)))
	s.CancelCrop()
	assert.Equal(t, acquire.ModeDrawing, s.Selector.Mode())

	_, err := s.CommitCrop(context.Background())
	assert.ErrorIs(t, err, acquire.ErrNotCropping)
}

func TestSetClientEmitsRelay(t *testing.T) {
	s := NewState(surface.New(10, 10), nil)
	var urls []string
	s.On(EventRelayChanged, func(d interface{}) { urls = append(urls, d.(string)) })

	c := relay(t, "1")
	s.SetClient(c)
	assert.Equal(t, []string{c.BaseURL()}, urls)
	assert.Same(t, c, s.Client())
}
