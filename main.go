// Package main provides the entry point for the Math Sketch desktop client.
package main

import (
	"context"
	"net/http"

	"mathsketch/internal/app"
	"mathsketch/internal/config"
	"mathsketch/internal/discovery"
	"mathsketch/internal/submit"
	"mathsketch/internal/surface"
	"mathsketch/internal/version"
	"mathsketch/ui/mainwindow"
	"mathsketch/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog/log"
)

const appID = "io.mathsketch.desktop"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("ignoring .env")
	}
	logCfg, err := config.LoadLogging(nil)
	if err != nil {
		log.Warn().Err(err).Msg("invalid logging settings, using defaults")
	}
	logCfg.Apply()

	clientCfg, err := config.LoadClient(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load client configuration")
	}

	log.Info().Str("version", version.String()).Msg("starting Math Sketch")

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.SketchTheme{})

	// The window is sized before the first layout; the canvas resizes the
	// surface once it knows its real width.
	state := app.NewState(surface.NewForViewport(surface.WideViewport+1), nil)
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, state, appPrefs)

	httpClient := &http.Client{Timeout: clientCfg.RequestTimeout}
	go connectRelay(state, clientCfg.ServerURL, httpClient)

	win.ShowAndRun()
}

// connectRelay attaches a submission client for serverURL, or for the
// first relay found over mDNS when serverURL is empty.
func connectRelay(state *app.State, serverURL string, httpClient *http.Client) {
	if serverURL == "" {
		found, err := discovery.Browse(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("relay discovery failed; set SERVER_URL")
			state.Emit(app.EventError, err)
			return
		}
		serverURL = found
	}

	client, err := submit.NewClient(serverURL, httpClient)
	if err != nil {
		log.Err(err).Str("url", serverURL).Msg("create relay client")
		state.Emit(app.EventError, err)
		return
	}
	state.SetClient(client)
}
