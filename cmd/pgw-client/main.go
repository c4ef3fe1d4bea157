// Package main provides the entry point for the PGW simulator client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sahmadiut/pgw-sim/internal/client"
	"github.com/sahmadiut/pgw-sim/internal/config"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	fs := pflag.NewFlagSet("pgw-client", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "Path to configuration file (default: client_config.json in . or ./config)")
	showVersion := fs.BoolP("version", "v", false, "Show version information")
	fs.Usage = func() {
		fmt.Println(`PGW simulator client

Usage:
  pgw-client [--config <path>] <IMSI>

Options:`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("pgw-client %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	os.Exit(run(*configPath, fs.Arg(0)))
}

func run(configPath, imsi string) int {
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.File,
		Fields: map[string]interface{}{"service": "pgw-client"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Close()

	clientConfig, err := client.ConfigFrom(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reply, err := client.New(clientConfig, log).Send(ctx, imsi)
	if err != nil {
		log.Error().Err(err).Str("imsi", imsi).Msg("Request failed")
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		return 1
	}

	fmt.Println(reply)
	return 0
}
