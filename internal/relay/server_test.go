package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"mathsketch/internal/recognize"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="drawing.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

type spy struct {
	calls int
	got   recognize.Image
	text  string
	err   error
}

func (s *spy) Recognize(ctx context.Context, img recognize.Image) (string, error) {
	s.calls++
	s.got = img
	return s.text, s.err
}

func post(t *testing.T, srv *Server, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestProcessImage(t *testing.T) {
	data := pngBytes(t)

	tests := []struct {
		name        string
		field       string
		contentType string
		data        []byte
		recognizer  *spy
		wantStatus  int
		wantBody    map[string]string
		wantCalls   int
	}{
		{
			name: "success", field: "image", contentType: "application/octet-stream", data: data,
			recognizer: &spy{text: "x = 5"},
			wantStatus: http.StatusOK, wantBody: map[string]string{"result": "x = 5"}, wantCalls: 1,
		},
		{
			name: "empty result", field: "image", contentType: "image/png", data: data,
			recognizer: &spy{text: ""},
			wantStatus: http.StatusOK, wantBody: map[string]string{"result": ""}, wantCalls: 1,
		},
		{
			name: "upstream failure", field: "image", contentType: "image/png", data: data,
			recognizer: &spy{err: errors.New("quota exceeded")},
			wantStatus: http.StatusInternalServerError, wantBody: map[string]string{"error": ErrProcessFailed}, wantCalls: 1,
		},
		{
			name: "wrong field", field: "file", contentType: "image/png", data: data,
			recognizer: &spy{},
			wantStatus: http.StatusBadRequest, wantBody: map[string]string{"error": ErrNoImage},
		},
		{
			name: "empty file", field: "image", contentType: "image/png", data: nil,
			recognizer: &spy{},
			wantStatus: http.StatusBadRequest, wantBody: map[string]string{"error": ErrNoImage},
		},
		{
			name: "not an image", field: "image", contentType: "text/plain", data: []byte("hello"),
			recognizer: &spy{},
			wantStatus: http.StatusBadRequest, wantBody: map[string]string{"error": ErrNotImage},
		},
		{
			name: "declared heic", field: "image", contentType: "image/heic", data: []byte("\x00\x00\x00\x18ftypheic"),
			recognizer: &spy{text: "y"},
			wantStatus: http.StatusOK, wantBody: map[string]string{"result": "y"}, wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			srv := New(tt.recognizer, Options{TempDir: dir})

			body, ct := multipartBody(t, tt.field, tt.contentType, tt.data)
			rec, out := post(t, srv, body, ct)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, out)
			assert.Equal(t, tt.wantCalls, tt.recognizer.calls)
			assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
			assertEmptyDir(t, dir)
		})
	}
}

func TestProcessImageForwardsBytesAndType(t *testing.T) {
	data := pngBytes(t)
	s := &spy{text: "1+1"}
	srv := New(s, Options{TempDir: t.TempDir()})

	body, ct := multipartBody(t, FormField, "application/octet-stream", data)
	rec, _ := post(t, srv, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, s.got.Data)
	assert.Equal(t, "image/png", s.got.MIMEType)
}

func TestProcessImageTooLarge(t *testing.T) {
	dir := t.TempDir()
	s := &spy{}
	srv := New(s, Options{TempDir: dir, MaxUploadBytes: 1024})

	big := append(pngBytes(t), bytes.Repeat([]byte{0}, 4096)...)
	body, ct := multipartBody(t, FormField, "image/png", big)
	rec, out := post(t, srv, body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, ErrTooLarge, out["error"])
	assert.Zero(t, s.calls)
	assertEmptyDir(t, dir)
}

func TestProcessImageNotMultipart(t *testing.T) {
	srv := New(&spy{}, Options{TempDir: t.TempDir()})
	rec, out := post(t, srv, bytes.NewBufferString(`{"image":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrNoImage, out["error"])
}

func TestHealth(t *testing.T) {
	srv := New(&spy{}, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["status"])
	assert.NotEmpty(t, out["version"])
}

func TestCORS(t *testing.T) {
	srv := New(&spy{}, Options{ClientURL: "http://localhost:5173"})

	tests := []struct {
		name      string
		origin    string
		wantAllow string
	}{
		{"allowed origin", "http://localhost:5173", "http://localhost:5173"},
		{"other origin", "http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/process-image", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllow != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := New(&spy{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	const id = "0b8c2d52-3d7c-4f43-9a52-4c0f1e0c6a11"
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}
