package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"

	sketchimage "mathsketch/internal/image"

	"github.com/rs/zerolog/log"
)

// ProcessPath is the relay endpoint that accepts images.
const ProcessPath = "/process-image"

// FormField is the multipart field carrying the image.
const FormField = "image"

// maxResponseBytes bounds how much of a relay reply is read.
const maxResponseBytes = 1 << 20

// Client talks to the relay and owns the live submission state.
type Client struct {
	url    *url.URL
	client *http.Client

	mu      sync.Mutex
	state   State
	gen     uint64
	current *Task

	// OnChange is called after every state transition, outside any lock.
	OnChange func(State)
}

// NewClient creates a client for the relay at baseURL. A nil http.Client
// selects http.DefaultClient.
func NewClient(baseURL string, client *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: scheme must be http or https", baseURL)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Client{url: u, client: client}, nil
}

// BaseURL returns the relay base URL.
func (c *Client) BaseURL() string {
	return c.url.String()
}

// State returns the live submission state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts sending payload to the relay. The state moves to Pending
// immediately and to Succeeded or Failed when the returned task finishes.
// While a submission is pending, Submit returns ErrBusy.
func (c *Client) Submit(ctx context.Context, payload sketchimage.Payload) (*Task, error) {
	c.mu.Lock()
	if c.state.Phase == PhasePending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.gen++
	gen := c.gen
	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	c.current = task
	c.state = State{Phase: PhasePending}
	c.mu.Unlock()

	c.notify(State{Phase: PhasePending})
	log.Info().Int("bytes", payload.Size()).Int("width", payload.Width).Int("height", payload.Height).
		Msg("submitting image")

	go func() {
		text, err := c.Process(taskCtx, payload)
		next := State{Phase: PhaseSucceeded, Text: text}
		if err != nil {
			next = State{Phase: PhaseFailed, Reason: failureReason(err)}
			log.Err(err).Msg("submission failed")
		}
		c.finish(gen, task, next)
	}()

	return task, nil
}

// SubmitFrom encodes a payload and submits it. An encoding failure moves
// the state straight to Failed without contacting the relay, unless another
// submission or a Reset took over while encoding.
func (c *Client) SubmitFrom(ctx context.Context, encode func() (sketchimage.Payload, error)) (*Task, error) {
	c.mu.Lock()
	if c.state.Phase == PhasePending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.gen++
	reserved := c.gen
	c.mu.Unlock()

	payload, err := encode()
	if err != nil {
		log.Err(err).Msg("could not encode image for submission")

		failed := State{Phase: PhaseFailed, Reason: err.Error()}
		c.mu.Lock()
		current := c.gen == reserved
		if current {
			c.state = failed
			c.current = nil
		}
		c.mu.Unlock()

		if current {
			c.notify(failed)
		}
		return nil, err
	}
	return c.Submit(ctx, payload)
}

// Reset cancels any in-flight submission and returns to Idle. A response
// that arrives afterwards is discarded.
func (c *Client) Reset() {
	c.mu.Lock()
	c.gen++
	task := c.current
	c.current = nil
	c.state = State{Phase: PhaseIdle}
	c.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	c.notify(State{Phase: PhaseIdle})
}

// finish records the outcome of task if it is still the current submission.
func (c *Client) finish(gen uint64, task *Task, next State) {
	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.state = next
		c.current = nil
	}
	c.mu.Unlock()

	if current {
		c.notify(next)
	}
	task.complete(next)
}

func (c *Client) notify(s State) {
	if c.OnChange != nil {
		c.OnChange(s)
	}
}

// Process posts payload to the relay and returns the recognized text. It
// does not touch the submission state.
func (c *Client) Process(ctx context.Context, payload sketchimage.Payload) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := payload.Filename
	if filename == "" {
		filename = sketchimage.DefaultFilename
	}
	part, err := writer.CreateFormFile(FormField, filename)
	if err != nil {
		return "", fmt.Errorf("create form: %w", err)
	}
	if _, err = part.Write(payload.Data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	_url := c.url.JoinPath(ProcessPath).String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, _url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Accept", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{StatusCode: response.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var resp ProcessResponse
	decodeErr := json.Unmarshal(raw, &resp)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		msg := resp.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(response.StatusCode)
		}
		return "", &TransportError{StatusCode: response.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &TransportError{Err: fmt.Errorf("decode response body: %w", decodeErr)}
	}
	if resp.Result == nil {
		return "", &TransportError{Err: errors.New("response has no result field")}
	}
	return *resp.Result, nil
}

func failureReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return ErrCancelled.Error()
	}
	return err.Error()
}
