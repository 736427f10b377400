// Package relay implements the HTTP endpoint that accepts an uploaded image,
// forwards it to a recognizer and returns the text.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"mathsketch/internal/recognize"
	"mathsketch/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Error messages returned to clients.
const (
	ErrProcessFailed = "Failed to process the image."
	ErrNoImage       = "No image uploaded."
	ErrNotImage      = "Uploaded file is not an image."
	ErrTooLarge      = "Uploaded image is too large."
)

// FormField is the multipart field holding the image.
const FormField = "image"

// DefaultMaxUploadBytes bounds the upload when Options leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// multipartOverhead allows for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

// Options configures a Server.
type Options struct {
	ClientURL      string // allowed CORS origin; empty disables CORS
	MaxUploadBytes int64
	TempDir        string // where uploads are spooled; empty uses os.TempDir
}

// Server is the stateless relay.
type Server struct {
	recognizer recognize.Recognizer
	opts       Options
	engine     *gin.Engine
}

// New builds the relay's router.
func New(recognizer recognize.Recognizer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{recognizer: recognizer, opts: opts}

	e := gin.New()
	e.Use(requestLogger(), recovery())
	if opts.ClientURL != "" {
		e.Use(cors.New(cors.Config{
			AllowOrigins:     []string{opts.ClientURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
			ExposeHeaders:    []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	e.MaxMultipartMemory = opts.MaxUploadBytes

	e.GET("/healthz", s.Health)
	e.POST("/process-image", s.ProcessImage)

	s.engine = e
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", version.Version).Msg("relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("relay shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Health reports liveness and the running version.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

// ProcessImage accepts one image in the "image" field and returns
// {"result": text}.
func (s *Server) ProcessImage(c *gin.Context) {
	logger := zerolog.Ctx(c.Request.Context())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+multipartOverhead)

	file, err := c.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(err)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrTooLarge})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoImage})
		return
	}
	if file.Size > s.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrTooLarge})
		return
	}

	data, err := s.spool(file)
	if err != nil {
		_ = c.Error(err)
		logger.Err(err).Str("file", file.Filename).Msg("spool upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrProcessFailed})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoImage})
		return
	}

	img, ok := recognize.SniffImage(data, file.Header.Get("Content-Type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNotImage})
		return
	}
	mime := img.MIMEType

	text, err := s.recognizer.Recognize(c.Request.Context(), img)
	if err != nil {
		_ = c.Error(err)
		logger.Err(err).Str("mime", mime).Int("bytes", len(data)).Msg("recognize image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrProcessFailed})
		return
	}

	logger.Info().Str("mime", mime).Int("bytes", len(data)).Int("chars", len(text)).Msg("image recognized")
	c.JSON(http.StatusOK, gin.H{"result": text})
}

// spool copies the upload to a uniquely named temporary file, reads it back
// and removes it before returning.
func (s *Server) spool(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.opts.TempDir, "upload-"+uuid.NewString()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", tmp.Name()).Msg("remove temporary file")
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, fmt.Errorf("write temporary file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temporary file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("read temporary file: %w", err)
	}
	return data, nil
}
