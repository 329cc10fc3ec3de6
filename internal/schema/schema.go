// Package schema defines the HCL shape of a node manifest: the declaration
// the host UI reads to render a node's typed inputs (sliders, toggles,
// enums) and to know which handler to invoke.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Lifecycle maps the node's run event to a registered Go handler.
type Lifecycle struct {
	OnRun string `hcl:"on_run"`
}

// InputDefinition declares a single typed input field of a node. Numeric
// bounds, step and display are UI metadata: the host validates ranges before
// invoking the handler, the plugin does not re-check them.
type InputDefinition struct {
	Name      string         `hcl:"name,label"`
	Type      hcl.Expression `hcl:"type"`
	Default   *cty.Value     `hcl:"default,optional"`
	Min       *float64       `hcl:"min,optional"`
	Max       *float64       `hcl:"max,optional"`
	Step      *float64       `hcl:"step,optional"`
	Display   string         `hcl:"display,optional"`
	Options   []string       `hcl:"options,optional"`
	Tooltip   string         `hcl:"tooltip,optional"`
	Multiline bool           `hcl:"multiline,optional"`
	Optional  bool           `hcl:"optional,optional"`
}

// OutputDefinition declares a value the node returns to the graph.
type OutputDefinition struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type"`
}

// NodeDefinition is the manifest for one node type.
type NodeDefinition struct {
	Type        string              `hcl:"type,label"`
	DisplayName string              `hcl:"display_name,optional"`
	Description string              `hcl:"description,optional"`
	Category    string              `hcl:"category,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// DefinitionConfig is the top-level structure of a manifest file.
type DefinitionConfig struct {
	Node *NodeDefinition `hcl:"node,block"`
	Body hcl.Body        `hcl:",remain"`
}
