package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/vk/wanattn/internal/ctxlog"
	"github.com/vk/wanattn/internal/manifest"
	"github.com/vk/wanattn/internal/registry"
)

// Config holds the settings for one App instance.
type Config struct {
	LogLevel  string
	LogFormat string
}

// App bundles the registry and logger behind the CLI commands.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
}

// NewApp builds an App with its own logger and a registry populated with the
// core node modules (or the given ones, in tests).
func NewApp(outW io.Writer, cfg Config, modules ...registry.Module) *App {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, outW)

	var reg *registry.Registry
	if len(modules) == 0 {
		reg = NewRegistry()
	} else {
		reg = registry.New()
		for _, m := range modules {
			m.Register(reg)
		}
	}

	return &App{outW: outW, logger: logger, registry: reg}
}

// Context returns a context carrying the app's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// ListNodes prints every registered node with its display name, category and
// declared input count.
func (a *App) ListNodes(ctx context.Context) error {
	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tDISPLAY NAME\tCATEGORY\tINPUTS")
	for _, name := range a.registry.Names() {
		node, _ := a.registry.Node(name)
		def, err := manifest.Decode(ctx, name, node.Manifest)
		if err != nil {
			return fmt.Errorf("manifest for %s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", name, node.DisplayName, node.Category, len(def.Inputs))
	}
	return w.Flush()
}

// ValidateManifests decodes every node's embedded manifest and checks it
// against the node's Go input struct, reporting all failures at once.
func (a *App) ValidateManifests(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, name := range a.registry.Names() {
		node, _ := a.registry.Node(name)
		def, err := manifest.Decode(ctx, name, node.Manifest)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := manifest.Validate(def, node.InputType); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", name, err))
			continue
		}
		logger.Debug("Manifest validated.", "node", name)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	fmt.Fprintf(a.outW, "all %d node manifests valid\n", len(a.registry.Names()))
	return nil
}
