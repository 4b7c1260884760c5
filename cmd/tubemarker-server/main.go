// Command tubemarker-server serves the video list from a JSON file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jwulff/tubemarker/internal/config"
	"github.com/jwulff/tubemarker/internal/filestore"
	"github.com/jwulff/tubemarker/internal/logger"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	fs := pflag.NewFlagSet("tubemarker-server", pflag.ContinueOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 2
		return
	}

	closer, err := logger.Init(cfg.GetLogFile(), cfg.GetLogLevel())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
		return
	}
	defer closer.Close()

	file := filestore.NewFile(cfg.GetDataFile())
	if _, err := file.Read(); err != nil {
		logger.Warnf("data file not readable yet, GET will fail until the first PUT: %v", err)
	}

	server := filestore.NewServer(cfg.GetServerAddress(), file)
	exit := make(chan int, 1)

	go func() {
		err := server.Start()
		if !errors.Is(err, http.ErrServerClosed) {
			exit <- 1
		}
	}()
	go handleSignals(exit)

	exitCode = <-exit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func handleSignals(exit chan<- int) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	<-signals
	exit <- 0
}
