// Package config reads relay and client settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPort           = 5000
	DefaultMaxUploadMB    = 10
	DefaultRequestTimeout = 60 * time.Second
	DefaultRecognizer     = "gemini"
)

// Relay holds the relay server settings.
type Relay struct {
	Port        int
	ClientURL   string // allowed CORS origin; empty allows none
	APIKey      string
	Model       string
	Recognizer  string
	MaxUploadMB int
	Advertise   bool // announce the relay over mDNS
}

// Addr returns the listen address for Port.
func (r Relay) Addr() string {
	return fmt.Sprintf(":%d", r.Port)
}

// MaxUploadBytes returns the upload limit in bytes.
func (r Relay) MaxUploadBytes() int64 {
	return int64(r.MaxUploadMB) << 20
}

// Client holds settings for submitting clients.
type Client struct {
	ServerURL      string // empty means discover over mDNS
	RequestTimeout time.Duration
}

// Logging controls the global zerolog logger.
type Logging struct {
	Level  zerolog.Level
	Format string // "json" or "console"
}

// LoadDotEnv loads variables from the given files into the process
// environment without overriding ones already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
		log.Debug().Str("file", f).Msg("loaded environment file")
	}
	return nil
}

// Getenv looks up a variable. It matches os.LookupEnv so tests can
// substitute a map.
type Getenv func(key string) (string, bool)

// LoadRelay reads relay settings.
func LoadRelay(env Getenv) (Relay, error) {
	if env == nil {
		env = os.LookupEnv
	}
	var errs []error

	cfg := Relay{
		ClientURL:  str(env, "CLIENT_URL", ""),
		APIKey:     str(env, "GEMINI_API_KEY", ""),
		Model:      str(env, "GEMINI_MODEL", ""),
		Recognizer: strings.ToLower(str(env, "RECOGNIZER", DefaultRecognizer)),
	}

	var err error
	if cfg.Port, err = integer(env, "PORT", DefaultPort); err != nil {
		errs = append(errs, err)
	} else if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %d out of range", cfg.Port))
	}
	if cfg.MaxUploadMB, err = integer(env, "MAX_UPLOAD_MB", DefaultMaxUploadMB); err != nil {
		errs = append(errs, err)
	} else if cfg.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB: must be positive"))
	}
	if cfg.Advertise, err = boolean(env, "RELAY_MDNS", false); err != nil {
		errs = append(errs, err)
	}

	return cfg, errors.Join(errs...)
}

// LoadClient reads client settings.
func LoadClient(env Getenv) (Client, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cfg := Client{
		ServerURL: strings.TrimRight(str(env, "SERVER_URL", ""), "/"),
	}
	var err error
	cfg.RequestTimeout, err = duration(env, "REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err == nil && cfg.RequestTimeout <= 0 {
		err = errors.New("REQUEST_TIMEOUT: must be positive")
	}
	return cfg, err
}

// LoadLogging reads LOG_LEVEL and LOG_FORMAT.
func LoadLogging(env Getenv) (Logging, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cfg := Logging{Level: zerolog.InfoLevel, Format: strings.ToLower(str(env, "LOG_FORMAT", "console"))}
	if v, ok := env("LOG_LEVEL"); ok && v != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.Level = lvl
	}
	if cfg.Format != "console" && cfg.Format != "json" {
		return cfg, fmt.Errorf("LOG_FORMAT: %q is not console or json", cfg.Format)
	}
	return cfg, nil
}

// Apply configures the global zerolog logger.
func (l Logging) Apply() {
	zerolog.SetGlobalLevel(l.Level)
	if l.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func str(env Getenv, key, fallback string) string {
	if v, ok := env(key); ok && v != "" {
		return v
	}
	return fallback
}

func integer(env Getenv, key string, fallback int) (int, error) {
	v, ok := env(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolean(env Getenv, key string, fallback bool) (bool, error) {
	v, ok := env(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// duration accepts Go durations ("90s") or a bare number of seconds.
func duration(env Getenv, key string, fallback time.Duration) (time.Duration, error) {
	v, ok := env(key)
	if !ok || v == "" {
		return fallback, nil
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
