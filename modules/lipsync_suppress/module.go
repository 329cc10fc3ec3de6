// Package lipsync_suppress implements the fixed-shape variant of the
// attention control node: a single strength factor applied to the audio
// cross-attention output projection of an explicit block interval. Final
// audio influence flows through that projection, so attenuating it alone is
// enough to detach lip motion from the audio track.
package lipsync_suppress

import (
	"context"
	_ "embed"
	"reflect"

	"github.com/vk/wanattn/internal/attnhook"
	"github.com/vk/wanattn/internal/ctxlog"
	"github.com/vk/wanattn/internal/metrics"
	"github.com/vk/wanattn/internal/registry"
	"github.com/vk/wanattn/wanvideo"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the lipsync_suppress node.
type Input struct {
	Model               wanvideo.Model `bggo:"model"`
	Enabled             bool           `bggo:"enabled"`
	SuppressionStrength float64        `bggo:"suppression_strength"`
	BlockStart          int            `bggo:"block_start"`
	BlockEnd            int            `bggo:"block_end"`
}

// Deps is empty: the node only touches the model passed through its input.
type Deps struct{}

// Output returns the same model handle to the graph.
type Output struct {
	Model wanvideo.Model `bggo:"model"`
}

// OnRunLipsyncSuppress is the handler for the lipsync_suppress node. When
// disabled it passes the model through untouched, leaving any hooks from a
// previous run in place.
func OnRunLipsyncSuppress(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("node", "lipsync_suppress")
	metrics.NodeRuns.WithLabelValues("lipsync_suppress").Inc()

	if !input.Enabled {
		logger.Debug("Disabled, passing model through.")
		return &Output{Model: input.Model}, nil
	}

	logger.Info("Suppressing lip sync.",
		"block_start", input.BlockStart, "block_end", input.BlockEnd,
		"strength", input.SuppressionStrength)

	removed := attnhook.ClearTracked(ctx, input.Model, attnhook.Keys...)
	if removed > 0 {
		logger.Debug("Cleared previously attached hooks.", "count", removed)
	}

	scales := attnhook.Scales{Q: 1.0, K: 1.0, V: 1.0, O: input.SuppressionStrength}

	blocks := input.Model.Diffusion().Blocks()
	var handles []wanvideo.HookHandle
	patched := 0
	for idx := input.BlockStart; idx <= input.BlockEnd; idx++ {
		if idx < 0 || idx >= len(blocks) {
			metrics.BlocksSkipped.WithLabelValues(metrics.SkipOutOfRange).Inc()
			logger.Warn("Block index out of range, skipping.", "block", idx, "max", len(blocks)-1)
			continue
		}
		attn := blocks[idx].AudioCrossAttn()
		if attn == nil {
			metrics.BlocksSkipped.WithLabelValues(metrics.SkipMissingAttention).Inc()
			logger.Debug("Block has no audio cross-attention, skipping.", "block", idx)
			continue
		}
		attached := attnhook.AttachProjections(ctx, attn, attnhook.KindAudio, idx, scales)
		if len(attached) > 0 {
			patched++
		}
		handles = append(handles, attached...)
	}

	input.Model.SetTrackedHooks(attnhook.KeyLipsyncSuppress, handles)
	logger.Info("Patched blocks.", "count", patched)

	return &Output{Model: input.Model}, nil
}

// Register registers the node with the plugin registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNode("lipsync_suppress", &registry.RegisteredNode{
		DisplayName: "WanVideo Lipsync Suppress",
		Category:    "wanvideo/attention",
		Manifest:    manifestSrc,
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Fn:          OnRunLipsyncSuppress,
	})
}
