// Command relay serves the image recognition endpoint.
//
// Usage: relay [-port N] [-recognizer gemini|tesseract] [-mdns]
//
// Settings default from the environment (PORT, CLIENT_URL, GEMINI_API_KEY,
// GEMINI_MODEL, RECOGNIZER, MAX_UPLOAD_MB, RELAY_MDNS), optionally loaded
// from a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mathsketch/internal/config"
	"mathsketch/internal/discovery"
	"mathsketch/internal/recognize"
	"mathsketch/internal/relay"
	"mathsketch/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	flagEnvFile    = flag.String("env", ".env", "Environment file to load")
	flagPort       = flag.Int("port", 0, "Listen port (overrides PORT)")
	flagRecognizer = flag.String("recognizer", "", "Recognizer backend (overrides RECOGNIZER)")
	flagMDNS       = flag.Bool("mdns", false, "Advertise the relay over mDNS")
	flagVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *flagVersion {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadDotEnv(*flagEnvFile); err != nil {
		log.Fatal().Err(err).Msg("load environment file")
	}
	logCfg, err := config.LoadLogging(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load logging configuration")
	}
	logCfg.Apply()

	cfg, err := config.LoadRelay(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load relay configuration")
	}
	if *flagPort != 0 {
		cfg.Port = *flagPort
	}
	if *flagRecognizer != "" {
		cfg.Recognizer = *flagRecognizer
	}
	if *flagMDNS {
		cfg.Advertise = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recognizer, err := recognize.New(ctx, cfg.Recognizer, recognize.Options{APIKey: cfg.APIKey, Model: cfg.Model})
	if err != nil {
		log.Fatal().Err(err).Str("recognizer", cfg.Recognizer).Msg("create recognizer")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := relay.New(recognizer, relay.Options{
		ClientURL:      cfg.ClientURL,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	if cfg.Advertise {
		adv, err := discovery.Advertise(cfg.Port, version.Version)
		if err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement disabled")
		} else {
			defer adv.Shutdown()
		}
	}

	log.Info().
		Str("recognizer", cfg.Recognizer).
		Str("client_url", cfg.ClientURL).
		Int("max_upload_mb", cfg.MaxUploadMB).
		Msg("relay configured")

	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("run server")
	}
}
