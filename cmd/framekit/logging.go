package main

import (
	"log/slog"
	"os"

	"framekit/internal/logging"

	"github.com/urfave/cli"
)

var logger = logging.With("framekit")

func setupLogging(ctx *cli.Context) {
	level := slog.LevelWarn
	if ctx.GlobalBool("v") {
		level = slog.LevelInfo
	}
	if ctx.GlobalBool("vv") {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	logger = logging.With("framekit")
}
