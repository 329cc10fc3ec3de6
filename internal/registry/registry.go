// Package registry is the central glue between this plugin and the host's
// extension loader. It maps node type names to their compiled Go parts and
// to the embedded HCL manifests the host UI renders. The host populates its
// own catalog from here at load time.
package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
)

// Module is the interface every node package implements to register itself.
type Module interface {
	Register(r *Registry)
}

// RegisteredNode holds the compiled Go parts of one node type.
type RegisteredNode struct {
	// DisplayName is the human-facing name shown by the host UI.
	DisplayName string
	// Category is the host UI menu path for the node.
	Category string
	// Manifest is the node's embedded HCL declaration.
	Manifest []byte
	// NewInput allocates the node's input struct for the host to decode into.
	NewInput func() any
	// InputType is the concrete input struct type, used for the
	// manifest/struct parity check.
	InputType reflect.Type
	// NewDeps allocates the node's dependency struct.
	NewDeps func() any
	// Fn is the node's run handler.
	Fn any
}

// Registry holds all registered node types for one plugin instance.
type Registry struct {
	nodes map[string]*RegisteredNode
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{nodes: make(map[string]*RegisteredNode)}
}

// RegisterNode registers a node type. Duplicate names are a programming
// error and panic at load time.
func (r *Registry) RegisterNode(name string, node *RegisteredNode) {
	if _, exists := r.nodes[name]; exists {
		panic(fmt.Sprintf("node type %q already registered", name))
	}
	slog.Debug("Registering node type.", "name", name)
	r.nodes[name] = node
}

// Node looks up a registered node type by name.
func (r *Registry) Node(name string) (*RegisteredNode, bool) {
	node, ok := r.nodes[name]
	return node, ok
}

// Names returns the registered node type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
