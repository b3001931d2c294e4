package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensecoach/coach/internal/config"
	"github.com/sensecoach/coach/internal/prefs"
	"github.com/sensecoach/coach/internal/sensecoach"
	"github.com/sensecoach/coach/internal/state"
	"github.com/sensecoach/coach/internal/ui"
)

// Options configure the coach application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/sensecoach/prefs.toml
	Debug      bool   // log client requests
}

// Run boots the coach TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)

	logger, closeLog, err := openLogger(cfg.LogPath(), opts.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	userID := cfg.UserID
	if userID == "" {
		userPrefs, err = prefs.EnsureUserID(prefsPath, userPrefs)
		if err != nil {
			// The id still works for this session.
			logger.Warn("user id not persisted", "error", err)
		}
		userID = userPrefs.UserID
	}

	clientOpts := cfg.ClientOptions()
	clientOpts.Logger = logger
	client, err := sensecoach.NewClient(clientOpts)
	if err != nil {
		return fmt.Errorf("init sensecoach client: %w", err)
	}

	store := &state.Store{}
	refresher := &Refresher{
		Client: client,
		Store:  store,
		UserID: userID,
		Logger: logger,
	}

	logger.Info("starting", "api_url", client.BaseURL(), "country", cfg.Country, "user_id", userID)

	return ui.Run(ui.Options{
		Context:   ctx,
		Client:    client,
		Store:     store,
		Refresher: refresher,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Country:   cfg.Country,
		UserID:    userID,
		Logger:    logger,
		LogPath:   cfg.LogPath(),
	})
}

// openLogger opens the append-only log file. The terminal belongs to the UI,
// so nothing is ever written to stderr while it runs.
func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if strings.TrimSpace(path) == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(file, level), func() { _ = file.Close() }, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
