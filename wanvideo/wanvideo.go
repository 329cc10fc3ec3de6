// Package wanvideo defines the contract this plugin consumes from a loaded
// WanVideo model handle. The host constructs and owns the model; the nodes in
// this repository only walk the fixed attribute path down to the attention
// projections, attach forward hooks, and record the resulting handles on the
// model for a later teardown.
//
// Every accessor that mirrors an optional attribute on the host object graph
// returns nil when the attribute is absent; callers are expected to check.
package wanvideo

import (
	"github.com/gomlx/gomlx/types/tensors"
)

// Output is the value a hooked projection produced: either a lone tensor, or
// a tuple whose first element is a tensor. For tuple-shaped outputs only the
// tensor is ever rewritten by hooks; Extra passes through untouched.
type Output struct {
	Tensor *tensors.Tensor
	Extra  []any
}

// IsTuple reports whether the output was tuple-shaped.
func (o Output) IsTuple() bool { return o.Extra != nil }

// TensorOutput wraps a plain tensor output.
func TensorOutput(t *tensors.Tensor) Output {
	return Output{Tensor: t}
}

// TupleOutput wraps a tuple output whose first element is t.
func TupleOutput(t *tensors.Tensor, extra ...any) Output {
	if extra == nil {
		extra = []any{}
	}
	return Output{Tensor: t, Extra: extra}
}

// ForwardHook runs after a projection's forward pass. It receives the
// projection's inputs and its output, and returns the (possibly rewritten)
// output the host propagates instead. Hooks must be pure: the host may call
// them concurrently across devices.
type ForwardHook func(inputs []*tensors.Tensor, output Output) Output

// HookHandle detaches a previously registered forward hook. Remove returns
// an error when the handle is stale, e.g. because the host already freed the
// underlying module; callers treat that as ignorable.
type HookHandle interface {
	Remove() error
}

// Projection is a single named linear projection inside an attention module
// that supports post-forward instrumentation.
type Projection interface {
	RegisterForwardHook(hook ForwardHook) HookHandle
}

// Names of the projections an attention module may expose.
const (
	ComponentQ = "q"
	ComponentK = "k"
	ComponentV = "v"
	ComponentO = "o"
)

// Components lists the projection names in their conventional order.
var Components = []string{ComponentQ, ComponentK, ComponentV, ComponentO}

// Attention is one attention module of a transformer block. Projection
// returns nil for components the module does not expose.
type Attention interface {
	Projection(name string) Projection
}

// Block is one repeated transformer block of the diffusion model. Each
// accessor returns nil when the block lacks that attention module; in
// particular only audio-conditioned checkpoints carry an audio
// cross-attention wrapper.
type Block interface {
	AudioCrossAttn() Attention
	CrossAttn() Attention
	SelfAttn() Attention
}

// DiffusionModel is the inner denoising network, reached on the host object
// as model.model.diffusion_model.
type DiffusionModel interface {
	Blocks() []Block
}

// Model is the host-owned handle a node receives and returns. Besides the
// path into the diffusion model it carries the hook bookkeeping this plugin
// maintains: per-key lists of every handle currently attached, so a repeat
// invocation (or an unload) can detach them again.
type Model interface {
	Diffusion() DiffusionModel

	// TrackedHooks returns the handles recorded under key, or nil.
	TrackedHooks(key string) []HookHandle
	// SetTrackedHooks replaces the handles recorded under key. A nil slice
	// clears the entry.
	SetTrackedHooks(key string, handles []HookHandle)
}
