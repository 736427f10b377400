package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiBackend is the registry name of the Gemini recognizer.
const GeminiBackend = "gemini"

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// ErrMissingAPIKey is returned when the Gemini backend has no credentials.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// contentGenerator is the part of *genai.Models the recognizer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini sends images to a Gemini multimodal model.
type Gemini struct {
	models contentGenerator
	model  string
}

func init() {
	Register(GeminiBackend, func(ctx context.Context, opts Options) (Recognizer, error) {
		return NewGemini(ctx, opts.APIKey, opts.Model)
	})
}

// NewGemini creates a recognizer backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

// Model returns the model name requests are sent to.
func (g *Gemini) Model() string { return g.model }

// Recognize sends the prompt and image as one user turn and returns the
// model's text reply.
func (g *Gemini) Recognize(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.New("gemini: empty image")
	}
	mime := img.MIMEType
	if mime == "" {
		mime = DefaultMIMEType
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(Prompt),
			genai.NewPartFromBytes(img.Data, mime),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}

	text := strings.TrimSpace(resp.Text())
	log.Debug().Str("model", g.model).Int("bytes", len(img.Data)).Int("chars", len(text)).
		Msg("gemini recognized image")
	return text, nil
}
