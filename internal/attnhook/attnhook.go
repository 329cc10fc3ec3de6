// Package attnhook implements the shared forward-hook lifecycle used by the
// attention control nodes: clear everything previously tracked on the model
// handle, then attach fresh scaling hooks and record their handles.
package attnhook

import (
	"context"
	"log/slog"

	"github.com/gomlx/gomlx/types/tensors"

	"github.com/vk/wanattn/internal/ctxlog"
	"github.com/vk/wanattn/internal/metrics"
	"github.com/vk/wanattn/internal/tensorops"
	"github.com/vk/wanattn/wanvideo"
)

// Bookkeeping keys on the model handle. The general control node and the
// audio motion boost node share KeyAttentionControl; the lip-sync suppress
// node records under its own key. Every node clears both keys before
// attaching, so the nodes are mutually exclusive in effect.
const (
	KeyAttentionControl = "attention-control"
	KeyLipsyncSuppress  = "lipsync-suppress"
)

// Keys lists every bookkeeping key this plugin uses.
var Keys = []string{KeyAttentionControl, KeyLipsyncSuppress}

// Attention kinds, named after the block attribute they live under.
const (
	KindAudio = "audio"
	KindCross = "cross"
	KindSelf  = "self"
)

// Scales holds the per-projection scale factors for one attention kind.
// A factor of exactly 1.0 is an identity and never gets a hook.
type Scales struct {
	Q, K, V, O float64
}

// For returns the factor configured for the named projection.
func (s Scales) For(component string) float64 {
	switch component {
	case wanvideo.ComponentQ:
		return s.Q
	case wanvideo.ComponentK:
		return s.K
	case wanvideo.ComponentV:
		return s.V
	case wanvideo.ComponentO:
		return s.O
	}
	return 1.0
}

// Identity reports whether every factor is exactly 1.0.
func (s Scales) Identity() bool {
	return s.Q == 1.0 && s.K == 1.0 && s.V == 1.0 && s.O == 1.0
}

// ClearTracked removes every hook recorded under the given keys and resets
// the bookkeeping. Removal failures are swallowed: the host may already have
// freed the module a handle points into. Returns the number of hooks
// actually detached.
func ClearTracked(ctx context.Context, m wanvideo.Model, keys ...string) int {
	logger := ctxlog.FromContext(ctx)
	removed := 0
	for _, key := range keys {
		for _, h := range m.TrackedHooks(key) {
			if err := h.Remove(); err != nil {
				metrics.StaleHookRemovals.Inc()
				logger.Debug("Ignoring stale hook handle.", "key", key, "error", err)
				continue
			}
			metrics.HooksRemoved.Inc()
			removed++
		}
		m.SetTrackedHooks(key, nil)
	}
	return removed
}

// ScaleHook builds the forward hook that multiplies a projection's output by
// factor. Tuple-shaped outputs are rescaled only in their tensor; the tuple
// tail passes through. Outputs that cannot be scaled (odd dtype, missing
// tensor) pass through unchanged with a warning, never an error: by the time
// hooks run, failing would abort the host's forward pass.
func ScaleHook(kind, component string, block int, factor float64) wanvideo.ForwardHook {
	return func(_ []*tensors.Tensor, output wanvideo.Output) wanvideo.Output {
		if output.Tensor == nil {
			slog.Warn("Hooked projection produced no tensor, passing through.",
				"kind", kind, "block", block, "component", component)
			return output
		}
		scaled, err := tensorops.Scale(output.Tensor, factor)
		if err != nil {
			slog.Warn("Cannot scale projection output, passing through.",
				"kind", kind, "block", block, "component", component, "error", err)
			return output
		}
		output.Tensor = scaled
		return output
	}
}

// AttachProjections attaches scale hooks to each q/k/v/o projection of attn
// whose factor is not 1.0. Missing projections are skipped with a
// diagnostic. Returns the handles of everything attached.
func AttachProjections(ctx context.Context, attn wanvideo.Attention, kind string, block int, scales Scales) []wanvideo.HookHandle {
	logger := ctxlog.FromContext(ctx)
	var handles []wanvideo.HookHandle
	for _, component := range wanvideo.Components {
		factor := scales.For(component)
		if factor == 1.0 {
			continue
		}
		proj := attn.Projection(component)
		if proj == nil {
			metrics.BlocksSkipped.WithLabelValues(metrics.SkipMissingProjection).Inc()
			logger.Debug("Projection not present, skipping.",
				"kind", kind, "block", block, "component", component)
			continue
		}
		handles = append(handles, proj.RegisterForwardHook(ScaleHook(kind, component, block, factor)))
		metrics.HooksAttached.WithLabelValues(kind, component).Inc()
		logger.Debug("Attached scale hook.",
			"kind", kind, "block", block, "component", component, "factor", factor)
	}
	return handles
}
