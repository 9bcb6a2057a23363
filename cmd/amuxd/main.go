// amuxd is the background daemon that supervises PTY-backed AI coding
// assistant sessions across Git repositories and worktrees.
//
// Usage:
//
//	amuxd [--data-dir <dir>] [--mock-provider]
//
// The daemon listens on a Unix domain socket at <data-dir>/daemon.sock and
// serves the CLI/TUI front end (amux). It is normally started automatically
// by amux; you do not need to run it by hand.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amux-dev/amux/internal/daemon"
)

func main() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Error("cannot determine home directory", "error", err)
		os.Exit(1)
	}
	defaultDataDir := filepath.Join(homeDir, ".amux")
	// AMUX_DATA_DIR overrides the default so tests and CI can point at a
	// scratch directory without touching ~/.amux.
	if env := os.Getenv("AMUX_DATA_DIR"); env != "" {
		defaultDataDir = env
	}

	dataDir := flag.String("data-dir", defaultDataDir, "amuxd data directory (env: AMUX_DATA_DIR)")
	mockProvider := flag.Bool("mock-provider", false, "register the mock AI provider (tests only)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	d, err := daemon.New(*dataDir, logger, *mockProvider)
	if err != nil {
		logger.Error("daemon init failed", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		os.Remove(d.SocketPath())
		os.Remove(d.PIDPath())
		os.Exit(0)
	}()

	if err := d.Run(); err != nil {
		logger.Error("daemon run failed", "error", err)
		os.Exit(1)
	}
}
