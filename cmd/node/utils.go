package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/ledgerless/ledgerless/log"
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) *slog.Logger {
	var level slog.Level
	switch ctx.String(verbosityFlag.Name) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.NewWithLevel("node", level)
}

// waitForExit returns at once with a context that is canceled on
// SIGINT/SIGTERM, so callers can wait on it and then run their
// shutdown sequence.
func waitForExit() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", ".mesh-node")
	}
	return filepath.Join(home, ".mesh-node")
}
