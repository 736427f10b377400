// Command submit sends an image to the relay from the command line and
// prints the recognized text.
//
// Usage: submit [options] <image>
//
// Photos can be cropped with -zoom and -pan before sending, using the same
// 4:3 frame as the desktop cropper.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"mathsketch/internal/acquire"
	"mathsketch/internal/config"
	"mathsketch/internal/crop"
	"mathsketch/internal/discovery"
	sketchimage "mathsketch/internal/image"
	"mathsketch/internal/submit"
	"mathsketch/internal/surface"
	"mathsketch/pkg/geometry"

	"github.com/rs/zerolog/log"
)

var (
	flagServer  = flag.String("server", "", "Relay base URL (overrides SERVER_URL; empty browses mDNS)")
	flagZoom    = flag.Float64("zoom", crop.MinZoom, "Crop zoom between 1 and 3")
	flagPanX    = flag.Float64("pan-x", 0, "Crop pan in preview pixels")
	flagPanY    = flag.Float64("pan-y", 0, "Crop pan in preview pixels")
	flagPreview = flag.Int("preview", 480, "Preview width the pan is measured against")
	flagSave    = flag.String("save", "", "Also write the submitted PNG to this path")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("ignoring .env")
	}
	if logCfg, err := config.LoadLogging(nil); err == nil {
		logCfg.Apply()
	}

	cfg, err := config.LoadClient(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load client configuration")
	}
	if *flagServer != "" {
		cfg.ServerURL = *flagServer
	}

	ctx := context.Background()
	if cfg.ServerURL == "" {
		if cfg.ServerURL, err = discovery.Browse(ctx); err != nil {
			log.Fatal().Err(err).Msg("find relay")
		}
	}

	payload, err := cropFile(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("prepare image")
	}
	if *flagSave != "" {
		if err := os.WriteFile(*flagSave, payload.Data, 0o644); err != nil {
			log.Fatal().Err(err).Msg("save payload")
		}
	}

	client, err := submit.NewClient(cfg.ServerURL, &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		log.Fatal().Err(err).Msg("create relay client")
	}
	task, err := client.Submit(ctx, payload)
	if err != nil {
		log.Fatal().Err(err).Msg("submit")
	}
	st, err := task.Wait(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("wait for result")
	}

	switch st.Phase {
	case submit.PhaseSucceeded:
		fmt.Println(st.Text)
	default:
		fmt.Fprintln(os.Stderr, "error:", st.Reason)
		os.Exit(1)
	}
}

// cropFile decodes path and runs it through the cropper at the requested
// pan and zoom.
func cropFile(path string) (sketchimage.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return sketchimage.Payload{}, err
	}
	defer f.Close()

	cropper := crop.New(crop.DefaultAspect)
	// The selector only needs a drawing for the drawn-image path
	sel := acquire.NewSelector(surface.New(1, 1), cropper)
	w := float64(*flagPreview)
	sel.SetPreviewSize(geometry.NewSize(w, w/crop.DefaultAspect))

	if err := sel.UseUploadedImage(f, filepath.Base(path)); err != nil {
		return sketchimage.Payload{}, err
	}
	cropper.SetZoom(*flagZoom)
	cropper.SetCrop(geometry.NewPoint2D(*flagPanX, *flagPanY))

	payload, err := sel.CommitCrop()
	if err != nil {
		return sketchimage.Payload{}, err
	}
	if r, ok := cropper.Region(); ok {
		log.Info().Int("x", r.X).Int("y", r.Y).Int("width", r.Width).Int("height", r.Height).Msg("cropped")
	}
	if payload.Width == 0 || payload.Height == 0 {
		return sketchimage.Payload{}, errors.New("empty crop")
	}
	return payload, nil
}
