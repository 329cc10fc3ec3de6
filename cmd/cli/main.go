package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/wanattn/internal/app"
)

// main is the entrypoint for the wanattn inspection tool. The nodes
// themselves run inside the host; this binary exists so a packaging step (or
// a curious user) can list them and check that every embedded manifest still
// matches its Go handler.
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the CLI logic for easier testing.
func run(outW io.Writer, args []string) error {
	flags := flag.NewFlagSet("wanattn", flag.ContinueOnError)
	flags.SetOutput(outW)
	logLevel := flags.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flags.String("log-format", "text", "log format: text or json")
	validate := flags.Bool("validate", false, "validate node manifests against their handlers")
	if err := flags.Parse(args); err != nil {
		return err
	}

	a := app.NewApp(outW, app.Config{LogLevel: *logLevel, LogFormat: *logFormat})
	ctx := a.Context(context.Background())

	if *validate {
		return a.ValidateManifests(ctx)
	}
	return a.ListNodes(ctx)
}
