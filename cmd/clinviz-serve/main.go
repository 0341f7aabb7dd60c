package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"clinviz/internal/config"
	"clinviz/internal/infrastructure"
	"clinviz/internal/site"
	"clinviz/pkg/contracts"
)

func main() {
	siteDir := flag.String("site", "", "site directory to serve (defaults to configured site dir)")
	port := flag.Int("port", 0, "listen port (overrides configuration)")
	noReload := flag.Bool("no-reload", false, "disable live reload")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		os.Stdout.WriteString(contracts.GetFullVersionString() + "\n")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *noReload {
		cfg.Server.LiveReload = false
	}

	dir := *siteDir
	if dir == "" {
		paths, err := config.ResolvePaths(cfg)
		if err != nil {
			logger.Error("failed to resolve paths", "error", err)
			os.Exit(1)
		}
		dir = paths.SiteDir
	}

	server, err := site.NewServer(logger, cfg.Server, dir)
	if err != nil {
		logger.Error("failed to create site server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("site server failed", "error", err)
		os.Exit(1)
	}
}
