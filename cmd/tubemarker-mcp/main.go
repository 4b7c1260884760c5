// Command tubemarker-mcp exposes the video store to MCP clients over stdio.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/config"
	"github.com/jwulff/tubemarker/internal/db"
	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/mcptools"
	"github.com/jwulff/tubemarker/internal/videoapi"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("tubemarker-mcp", pflag.ContinueOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	// stdout carries the protocol
	closer, err := logger.Init(cfg.GetLogFile(), cfg.GetLogLevel())
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
	defer store.Wait()

	svc := mcptools.New(store, registry)
	logger.Infof("[MCP] serving %s over stdio", cfg.GetAPIURL())
	return server.ServeStdio(mcptools.NewServer(svc, version))
}
