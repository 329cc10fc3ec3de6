// Package modeltest provides an in-memory WanVideo model that satisfies the
// wanvideo contract, for exercising the nodes without a host. Projections
// record their hooks and can replay a forward pass through them.
package modeltest

import (
	"fmt"

	"github.com/gomlx/gomlx/types/tensors"

	"github.com/vk/wanattn/wanvideo"
)

// Projection is a hookable fake of one attention projection.
type Projection struct {
	hooks  []*hookEntry
	nextID int
}

type hookEntry struct {
	id int
	fn wanvideo.ForwardHook
}

// RegisterForwardHook implements wanvideo.Projection.
func (p *Projection) RegisterForwardHook(fn wanvideo.ForwardHook) wanvideo.HookHandle {
	entry := &hookEntry{id: p.nextID, fn: fn}
	p.nextID++
	p.hooks = append(p.hooks, entry)
	return &handle{proj: p, id: entry.id}
}

// HookCount returns how many hooks are currently attached.
func (p *Projection) HookCount() int { return len(p.hooks) }

// Forward feeds x through the projection identity and then through every
// attached hook, in registration order, the way the host would after the
// real forward pass.
func (p *Projection) Forward(x *tensors.Tensor) wanvideo.Output {
	return p.forward(x, wanvideo.TensorOutput(x))
}

// ForwardTuple is Forward for a projection whose module returns a tuple.
func (p *Projection) ForwardTuple(x *tensors.Tensor, extra ...any) wanvideo.Output {
	return p.forward(x, wanvideo.TupleOutput(x, extra...))
}

func (p *Projection) forward(x *tensors.Tensor, out wanvideo.Output) wanvideo.Output {
	for _, entry := range p.hooks {
		out = entry.fn([]*tensors.Tensor{x}, out)
	}
	return out
}

type handle struct {
	proj    *Projection
	id      int
	removed bool
}

// Remove implements wanvideo.HookHandle. Removing twice errors, standing in
// for a handle the host already invalidated.
func (h *handle) Remove() error {
	if h.removed {
		return fmt.Errorf("hook %d already removed", h.id)
	}
	h.removed = true
	for i, entry := range h.proj.hooks {
		if entry.id == h.id {
			h.proj.hooks = append(h.proj.hooks[:i], h.proj.hooks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("hook %d not attached", h.id)
}

// Attention is a fake attention module with a configurable projection set.
type Attention struct {
	projections map[string]*Projection
}

// NewAttention builds an attention module exposing the named projections,
// defaulting to all of q/k/v/o.
func NewAttention(components ...string) *Attention {
	if len(components) == 0 {
		components = wanvideo.Components
	}
	a := &Attention{projections: make(map[string]*Projection, len(components))}
	for _, c := range components {
		a.projections[c] = &Projection{}
	}
	return a
}

// Projection implements wanvideo.Attention, returning nil for components the
// module does not carry.
func (a *Attention) Projection(name string) wanvideo.Projection {
	p, ok := a.projections[name]
	if !ok {
		return nil
	}
	return p
}

// Proj returns the concrete fake projection for assertions.
func (a *Attention) Proj(name string) *Projection { return a.projections[name] }

// DropProjection removes a component, simulating a module without it.
func (a *Attention) DropProjection(name string) { delete(a.projections, name) }

// HookCount sums the hooks attached across all projections.
func (a *Attention) HookCount() int {
	n := 0
	for _, p := range a.projections {
		n += p.HookCount()
	}
	return n
}

// Block is a fake transformer block. Nil attention fields model blocks that
// lack that module.
type Block struct {
	Audio *Attention
	Cross *Attention
	Self  *Attention
}

func (b *Block) AudioCrossAttn() wanvideo.Attention {
	if b.Audio == nil {
		return nil
	}
	return b.Audio
}

func (b *Block) CrossAttn() wanvideo.Attention {
	if b.Cross == nil {
		return nil
	}
	return b.Cross
}

func (b *Block) SelfAttn() wanvideo.Attention {
	if b.Self == nil {
		return nil
	}
	return b.Self
}

// HookCount sums the hooks attached across the block's attention modules.
func (b *Block) HookCount() int {
	n := 0
	for _, a := range []*Attention{b.Audio, b.Cross, b.Self} {
		if a != nil {
			n += a.HookCount()
		}
	}
	return n
}

type diffusion struct {
	blocks []wanvideo.Block
}

func (d *diffusion) Blocks() []wanvideo.Block { return d.blocks }

// Model is a fake host model handle.
type Model struct {
	blocks  []*Block
	tracked map[string][]wanvideo.HookHandle
}

// NewModel builds a model with numBlocks blocks, each carrying audio, cross
// and self attention with the full q/k/v/o projection set.
func NewModel(numBlocks int) *Model {
	m := &Model{
		blocks:  make([]*Block, numBlocks),
		tracked: make(map[string][]wanvideo.HookHandle),
	}
	for i := range m.blocks {
		m.blocks[i] = &Block{
			Audio: NewAttention(),
			Cross: NewAttention(),
			Self:  NewAttention(),
		}
	}
	return m
}

// Block returns the concrete fake block for assertions and mutation.
func (m *Model) Block(i int) *Block { return m.blocks[i] }

// Diffusion implements wanvideo.Model.
func (m *Model) Diffusion() wanvideo.DiffusionModel {
	blocks := make([]wanvideo.Block, len(m.blocks))
	for i, b := range m.blocks {
		blocks[i] = b
	}
	return &diffusion{blocks: blocks}
}

// TrackedHooks implements wanvideo.Model.
func (m *Model) TrackedHooks(key string) []wanvideo.HookHandle {
	return m.tracked[key]
}

// SetTrackedHooks implements wanvideo.Model.
func (m *Model) SetTrackedHooks(key string, handles []wanvideo.HookHandle) {
	if handles == nil {
		delete(m.tracked, key)
		return
	}
	m.tracked[key] = handles
}

// TotalHooks counts every hook currently attached anywhere on the model.
func (m *Model) TotalHooks() int {
	n := 0
	for _, b := range m.blocks {
		n += b.HookCount()
	}
	return n
}
