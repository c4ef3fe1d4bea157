// Package main provides the entry point for the PGW simulator server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sahmadiut/pgw-sim/internal/config"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/internal/server"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	// exitStartup covers bad config, bind failures and other errors
	// that leave no server running.
	exitStartup = 2
)

func main() {
	fs := pflag.NewFlagSet("pgw-server", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "Path to configuration file (default: server_config.json in . or ./config)")
	showVersion := fs.BoolP("version", "v", false, "Show version information")
	fs.Usage = func() {
		fmt.Println(`PGW simulator server

Usage:
  pgw-server [--config <path>]

Options:`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("pgw-server %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(exitOK)
	}

	os.Exit(run(*configPath))
}

// exitCode maps a terminal error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case pgwerrors.IsFatal(err):
		return exitStartup
	default:
		return exitFailure
	}
}

func run(configPath string) int {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitStartup
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return exitCode(err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.File,
		Console: true,
		Fields:  map[string]interface{}{"service": "pgw-server"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitStartup
	}
	defer log.Close()

	log.Info().
		Str("version", version).
		Str("udp_addr", cfg.UDPAddr()).
		Str("http_addr", cfg.HTTPAddr()).
		Int("session_timeout_sec", cfg.SessionTimeoutSec).
		Str("cdr_file", cfg.CDRFile).
		Msg("Starting PGW server")

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create server")
		return exitCode(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})

	// Signals and /stop share the same shutdown path.
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			srv.Shutdown()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		code := exitCode(err)
		if code == exitStartup {
			log.Error().Err(err).Msg("Server failed to start")
		} else {
			log.Error().Err(err).Msg("Server exited with error")
		}
		return code
	}

	log.Info().Msg("Shutdown complete")
	return exitOK
}
