package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gimg/internal/batch"
	"gimg/internal/capability"
	"gimg/internal/cli"
	"gimg/internal/config"
	"gimg/internal/imgio"
	"gimg/internal/ops"
)

func main() {
	os.Exit(run())
}

// run exists so deferred cleanup happens before the process exit code is
// delivered.
func run() int {
	cfg := config.Load()

	// The CLI stays quiet unless asked; diagnostics go to stderr on demand.
	logOut := io.Discard
	if os.Getenv("GIMG_VERBOSE") != "" {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "[gimg] ", log.LstdFlags|log.Lmsgprefix)

	if err := imgio.Startup(); err != nil {
		log.Printf("codec startup failed: %v", err)
		return 1
	}
	defer imgio.Shutdown()

	caps := capability.Detect(cfg.Capabilities, logger)
	fonts, err := ops.LoadFonts(cfg.Capabilities.FontFile)
	if err != nil {
		log.Printf("font load failed: %v", err)
		return 1
	}

	registry := ops.NewRegistry(&ops.Env{
		Caps:   caps,
		Fonts:  fonts,
		Cfg:    cfg.Capabilities,
		Logger: logger,
	})

	app := &cli.App{
		Registry: registry,
		Runner:   batch.NewRunner(registry, logger),
		Cfg:      cfg,
		Logger:   logger,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, app)
}
