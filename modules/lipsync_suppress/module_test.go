package lipsync_suppress

import (
	"context"
	"reflect"
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/wanattn/internal/attnhook"
	"github.com/vk/wanattn/internal/manifest"
	"github.com/vk/wanattn/internal/metrics"
	"github.com/vk/wanattn/internal/modeltest"
	"github.com/vk/wanattn/modules/attention_control"
	"github.com/vk/wanattn/wanvideo"
)

func suppressInput(m *modeltest.Model) *Input {
	return &Input{
		Model:               m,
		Enabled:             true,
		SuppressionStrength: 0.05,
		BlockStart:          6,
		BlockEnd:            24,
	}
}

func TestOnRun_SuppressesOutputProjectionOnly(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(40)

	out, err := OnRunLipsyncSuppress(ctx, &Deps{}, suppressInput(m))
	require.NoError(t, err)
	assert.Same(t, wanvideo.Model(m), out.Model)

	assert.Equal(t, 19, m.TotalHooks())
	assert.Len(t, m.TrackedHooks(attnhook.KeyLipsyncSuppress), 19)
	assert.Equal(t, 1, m.Block(6).Audio.Proj(wanvideo.ComponentO).HookCount())
	assert.Equal(t, 0, m.Block(6).Audio.Proj(wanvideo.ComponentV).HookCount())
	assert.Equal(t, 0, m.Block(5).HookCount())

	x := tensors.FromFlatDataAndDimensions([]float64{100, -40}, 2)
	got := m.Block(24).Audio.Proj(wanvideo.ComponentO).Forward(x)
	want := tensors.FromFlatDataAndDimensions([]float64{5, -2}, 2)
	assert.True(t, got.Tensor.InDelta(want, 1e-9), "got %s", got.Tensor)
}

func TestOnRun_DisabledLeavesModelUntouched(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(40)

	// Attach something first so we can tell nothing was cleared.
	_, err := OnRunLipsyncSuppress(ctx, &Deps{}, suppressInput(m))
	require.NoError(t, err)
	require.Equal(t, 19, m.TotalHooks())

	disabled := suppressInput(m)
	disabled.Enabled = false
	_, err = OnRunLipsyncSuppress(ctx, &Deps{}, disabled)
	require.NoError(t, err)
	assert.Equal(t, 19, m.TotalHooks())
}

func TestOnRun_DisabledInvocationStillCounted(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(4)

	disabled := suppressInput(m)
	disabled.Enabled = false

	runs := metrics.NodeRuns.WithLabelValues("lipsync_suppress")
	before := testutil.ToFloat64(runs)
	_, err := OnRunLipsyncSuppress(ctx, &Deps{}, disabled)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(runs))
}

func TestOnRun_RangeClampedToModel(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(10)

	input := suppressInput(m)
	input.BlockStart = 8
	input.BlockEnd = 24

	_, err := OnRunLipsyncSuppress(ctx, &Deps{}, input)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalHooks()) // blocks 8 and 9
}

func TestOnRun_MissingAudioAttentionSkipped(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(40)
	m.Block(10).Audio = nil

	input := suppressInput(m)
	input.BlockStart = 9
	input.BlockEnd = 11

	_, err := OnRunLipsyncSuppress(ctx, &Deps{}, input)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalHooks())
}

// The general control node and this node clear each other's hooks before
// attaching, so no block ever carries both scalings.
func TestCrossNodeExclusion(t *testing.T) {
	ctx := context.Background()
	m := modeltest.NewModel(40)

	controlInput := &attention_control.Input{
		Model:                m,
		EnableAudioCrossAttn: true,
		AudioBlocks:          "mid_6-24_lipsync",
		AudioQScale:          1.0, AudioKScale: 1.0, AudioVScale: 2.0, AudioOScale: 1.0,
		CrossBlocks: "early_0-10_body",
		CrossQScale: 1.0, CrossKScale: 1.0, CrossVScale: 1.0, CrossOScale: 1.0,
		SelfBlocks: "early_0-10_body",
		SelfQScale: 1.0, SelfKScale: 1.0, SelfVScale: 1.0, SelfOScale: 1.0,
	}
	_, err := attention_control.OnRunAttentionControl(ctx, &attention_control.Deps{}, controlInput)
	require.NoError(t, err)
	require.Equal(t, 19, m.TotalHooks())

	_, err = OnRunLipsyncSuppress(ctx, &Deps{}, suppressInput(m))
	require.NoError(t, err)

	// Only the suppress hooks remain.
	assert.Equal(t, 19, m.TotalHooks())
	assert.Empty(t, m.TrackedHooks(attnhook.KeyAttentionControl))
	assert.Len(t, m.TrackedHooks(attnhook.KeyLipsyncSuppress), 19)
	assert.Equal(t, 0, m.Block(10).Audio.Proj(wanvideo.ComponentV).HookCount())
	assert.Equal(t, 1, m.Block(10).Audio.Proj(wanvideo.ComponentO).HookCount())

	// And the other way round.
	_, err = attention_control.OnRunAttentionControl(ctx, &attention_control.Deps{}, controlInput)
	require.NoError(t, err)
	assert.Empty(t, m.TrackedHooks(attnhook.KeyLipsyncSuppress))
	assert.Equal(t, 0, m.Block(10).Audio.Proj(wanvideo.ComponentO).HookCount())
	assert.Equal(t, 1, m.Block(10).Audio.Proj(wanvideo.ComponentV).HookCount())
}

func TestManifest_MatchesInputStruct(t *testing.T) {
	def, err := manifest.Decode(context.Background(), "lipsync_suppress", manifestSrc)
	require.NoError(t, err)
	require.NoError(t, manifest.Validate(def, reflect.TypeOf(Input{})))
	assert.Equal(t, "OnRunLipsyncSuppress", def.Lifecycle.OnRun)
}
