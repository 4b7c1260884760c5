// Command tubemarker is the terminal UI for marking up videos.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/app"
	"github.com/jwulff/tubemarker/internal/config"
	"github.com/jwulff/tubemarker/internal/db"
	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/mpv"
	"github.com/jwulff/tubemarker/internal/playback"
	"github.com/jwulff/tubemarker/internal/videoapi"
)

const loadTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("tubemarker", pflag.ContinueOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	// the terminal belongs to the UI, so logs always go to a file
	logFile := cfg.GetLogFile()
	if logFile == "" {
		logFile = filepath.Join(config.DefaultDir(), "tubemarker.log")
	}
	closer, err := logger.Init(logFile, cfg.GetLogLevel())
	if err != nil {
		return err
	}
	defer closer.Close()

	prefs, err := db.Open(cfg.GetPrefsDB())
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	defer prefs.Close()

	registry := markertype.Load(prefs)
	store := annotation.New(videoapi.New(cfg.GetAPIURL()), registry)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	if !store.Load(ctx) {
		fmt.Fprintf(os.Stderr, "video store at %s unavailable, showing built-in videos\n", cfg.GetAPIURL())
	}
	cancel()

	launcher := mpv.NewLauncher(cfg.GetMpvPath(), cfg.GetSocketDir())
	defer launcher.Cleanup()

	loop := app.NewLoop()
	session := playback.New(loop, launcher, store)

	m := app.New(app.Deps{
		Store:     store,
		Registry:  registry,
		Sync:      session,
		Loop:      loop,
		Readiness: playback.NewReadiness(),
		Prepare:   launcher.Prepare,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, runErr := p.Run()

	session.Dispose()
	if err := store.Wait(); err != nil {
		logger.Errorf("last save failed, remote may be behind: %v", err)
	}

	if runErr != nil {
		return fmt.Errorf("run tui: %w", runErr)
	}
	return nil
}
