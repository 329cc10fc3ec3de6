// Package attention_control implements the general attention control node:
// independent q/k/v/o scale factors for the audio cross-attention, text
// cross-attention and self-attention of a selectable range of transformer
// blocks.
package attention_control

import (
	"context"
	_ "embed"
	"fmt"
	"reflect"
	"sort"

	"github.com/vk/wanattn/internal/attnhook"
	"github.com/vk/wanattn/internal/blockrange"
	"github.com/vk/wanattn/internal/ctxlog"
	"github.com/vk/wanattn/internal/metrics"
	"github.com/vk/wanattn/internal/registry"
	"github.com/vk/wanattn/wanvideo"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the attention_control node. The host
// decodes the UI fields into it; numeric bounds were already enforced there.
type Input struct {
	Model wanvideo.Model `bggo:"model"`

	EnableAudioCrossAttn bool    `bggo:"enable_audio_cross_attn"`
	AudioBlocks          string  `bggo:"audio_blocks"`
	AudioQScale          float64 `bggo:"audio_q_scale"`
	AudioKScale          float64 `bggo:"audio_k_scale"`
	AudioVScale          float64 `bggo:"audio_v_scale"`
	AudioOScale          float64 `bggo:"audio_o_scale"`

	EnableCrossAttn bool    `bggo:"enable_cross_attn"`
	CrossBlocks     string  `bggo:"cross_blocks"`
	CrossQScale     float64 `bggo:"cross_q_scale"`
	CrossKScale     float64 `bggo:"cross_k_scale"`
	CrossVScale     float64 `bggo:"cross_v_scale"`
	CrossOScale     float64 `bggo:"cross_o_scale"`

	EnableSelfAttn bool    `bggo:"enable_self_attn"`
	SelfBlocks     string  `bggo:"self_blocks"`
	SelfQScale     float64 `bggo:"self_q_scale"`
	SelfKScale     float64 `bggo:"self_k_scale"`
	SelfVScale     float64 `bggo:"self_v_scale"`
	SelfOScale     float64 `bggo:"self_o_scale"`

	AudioCustomRange string `bggo:"audio_custom_range,optional"`
	CrossCustomRange string `bggo:"cross_custom_range,optional"`
	SelfCustomRange  string `bggo:"self_custom_range,optional"`
}

// Deps is empty: the node only touches the model passed through its input.
type Deps struct{}

// Output returns the same model handle to the graph.
type Output struct {
	Model wanvideo.Model `bggo:"model"`
}

// OnRunAttentionControl is the handler for the attention_control node. It is
// idempotent: every run first detaches whatever this plugin attached before,
// then attaches the newly configured hooks.
func OnRunAttentionControl(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("node", "attention_control")
	metrics.NodeRuns.WithLabelValues("attention_control").Inc()

	audioBlocks, err := resolveEnabled(ctx, input.EnableAudioCrossAttn, input.AudioBlocks, input.AudioCustomRange)
	if err != nil {
		return nil, fmt.Errorf("audio block selector: %w", err)
	}
	crossBlocks, err := resolveEnabled(ctx, input.EnableCrossAttn, input.CrossBlocks, input.CrossCustomRange)
	if err != nil {
		return nil, fmt.Errorf("cross block selector: %w", err)
	}
	selfBlocks, err := resolveEnabled(ctx, input.EnableSelfAttn, input.SelfBlocks, input.SelfCustomRange)
	if err != nil {
		return nil, fmt.Errorf("self block selector: %w", err)
	}

	audioScales := attnhook.Scales{Q: input.AudioQScale, K: input.AudioKScale, V: input.AudioVScale, O: input.AudioOScale}
	crossScales := attnhook.Scales{Q: input.CrossQScale, K: input.CrossKScale, V: input.CrossVScale, O: input.CrossOScale}
	selfScales := attnhook.Scales{Q: input.SelfQScale, K: input.SelfKScale, V: input.SelfVScale, O: input.SelfOScale}

	if input.EnableAudioCrossAttn {
		mode := "boost"
		if input.AudioVScale < 1.0 {
			mode = "suppress"
		}
		logger.Info("Audio cross-attention enabled.", "mode", mode, "blocks", len(audioBlocks),
			"q", input.AudioQScale, "k", input.AudioKScale, "v", input.AudioVScale, "o", input.AudioOScale)
	}
	if input.EnableCrossAttn {
		logger.Info("Text cross-attention enabled.", "blocks", len(crossBlocks),
			"q", input.CrossQScale, "k", input.CrossKScale, "v", input.CrossVScale, "o", input.CrossOScale)
	}
	if input.EnableSelfAttn {
		logger.Info("Self-attention enabled.", "blocks", len(selfBlocks),
			"q", input.SelfQScale, "k", input.SelfKScale, "v", input.SelfVScale, "o", input.SelfOScale)
	}

	removed := attnhook.ClearTracked(ctx, input.Model, attnhook.Keys...)
	if removed > 0 {
		logger.Debug("Cleared previously attached hooks.", "count", removed)
	}

	blocks := input.Model.Diffusion().Blocks()
	audioSet := toSet(audioBlocks)
	crossSet := toSet(crossBlocks)
	selfSet := toSet(selfBlocks)

	var handles []wanvideo.HookHandle
	for _, idx := range unionSorted(audioSet, crossSet, selfSet) {
		if idx >= len(blocks) {
			metrics.BlocksSkipped.WithLabelValues(metrics.SkipOutOfRange).Inc()
			logger.Warn("Block index out of range, skipping.", "block", idx, "max", len(blocks)-1)
			continue
		}
		block := blocks[idx]

		if audioSet[idx] {
			if attn := block.AudioCrossAttn(); attn != nil {
				handles = append(handles, attnhook.AttachProjections(ctx, attn, attnhook.KindAudio, idx, audioScales)...)
			} else {
				metrics.BlocksSkipped.WithLabelValues(metrics.SkipMissingAttention).Inc()
				logger.Debug("Block has no audio cross-attention, skipping.", "block", idx)
			}
		}
		if crossSet[idx] {
			if attn := block.CrossAttn(); attn != nil {
				handles = append(handles, attnhook.AttachProjections(ctx, attn, attnhook.KindCross, idx, crossScales)...)
			} else {
				metrics.BlocksSkipped.WithLabelValues(metrics.SkipMissingAttention).Inc()
				logger.Debug("Block has no text cross-attention, skipping.", "block", idx)
			}
		}
		if selfSet[idx] {
			if attn := block.SelfAttn(); attn != nil {
				handles = append(handles, attnhook.AttachProjections(ctx, attn, attnhook.KindSelf, idx, selfScales)...)
			} else {
				metrics.BlocksSkipped.WithLabelValues(metrics.SkipMissingAttention).Inc()
				logger.Debug("Block has no self-attention, skipping.", "block", idx)
			}
		}
	}

	input.Model.SetTrackedHooks(attnhook.KeyAttentionControl, handles)
	logger.Info("Registered attention hooks.", "count", len(handles))

	return &Output{Model: input.Model}, nil
}

// resolveEnabled resolves a block selector, or returns nothing when the
// attention kind is disabled.
func resolveEnabled(ctx context.Context, enabled bool, preset, custom string) ([]int, error) {
	if !enabled {
		return nil, nil
	}
	if !blockrange.Known(preset) {
		ctxlog.FromContext(ctx).Warn("Unknown block preset, using default range.", "preset", preset)
	}
	return blockrange.Resolve(preset, custom)
}

func toSet(blocks []int) map[int]bool {
	set := make(map[int]bool, len(blocks))
	for _, idx := range blocks {
		set[idx] = true
	}
	return set
}

func unionSorted(sets ...map[int]bool) []int {
	seen := make(map[int]bool)
	for _, set := range sets {
		for idx := range set {
			seen[idx] = true
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Register registers the node with the plugin registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNode("attention_control", &registry.RegisteredNode{
		DisplayName: "WanVideo Attention Control",
		Category:    "wanvideo/attention",
		Manifest:    manifestSrc,
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Fn:          OnRunAttentionControl,
	})
}
