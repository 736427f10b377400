package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(s, genai.RoleModel),
		}},
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestGeminiSendsPromptAndImage(t *testing.T) {
	fake := &fakeModels{resp: textResponse("  x = 5\n")}
	g := newGemini(fake, "")

	text, err := g.Recognize(context.Background(), Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "x = 5", text)
	assert.Equal(t, DefaultGeminiModel, fake.model)

	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, Prompt, parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeModels
		img  Image
	}{
		{"empty image", &fakeModels{resp: textResponse("x")}, Image{}},
		{"upstream failure", &fakeModels{err: errors.New("quota")}, Image{Data: []byte{1}}},
		{"no candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}, Image{Data: []byte{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGemini(tt.fake, "custom-model").Recognize(context.Background(), tt.img)
			assert.Error(t, err)
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSniffImage(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		wantMIME string
		wantOK   bool
	}{
		{"png bytes", pngBytes(t), "", "image/png", true},
		{"sniffed wins over declared", pngBytes(t), "image/jpeg", "image/png", true},
		{"heic declared", []byte("\x00\x00\x00\x18ftypheic"), "image/heic", "image/heic", true},
		{"text", []byte("plain"), "application/octet-stream", "", false},
		{"text without declared type", []byte("plain"), "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, ok := SniffImage(tt.data, tt.declared)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, Backends(), GeminiBackend)

	_, err := New(context.Background(), "nope", Options{})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	Register("test-echo", func(ctx context.Context, opts Options) (Recognizer, error) {
		return Func(func(ctx context.Context, img Image) (string, error) {
			return opts.Model + ":" + img.MIMEType, nil
		}), nil
	})
	r, err := New(context.Background(), "test-echo", Options{Model: "m"})
	require.NoError(t, err)
	text, err := r.Recognize(context.Background(), Image{MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "m:image/png", text)

	assert.Panics(t, func() {
		Register("test-echo", nil)
	})
}
