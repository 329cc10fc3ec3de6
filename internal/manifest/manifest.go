// Package manifest parses the HCL node manifests embedded in each node
// package and checks them against the node's Go input struct, so a manifest
// and its handler cannot drift apart without a test failing.
package manifest

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/wanattn/internal/ctxlog"
	"github.com/vk/wanattn/internal/schema"
	"github.com/vk/wanattn/wanvideo"
)

// Decode parses manifest source bytes into a NodeDefinition. name is used
// for diagnostics only.
func Decode(ctx context.Context, name string, src []byte) (*schema.NodeDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding node manifest.", "node", name)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name+".hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest for %s: %s", name, diags.Error())
	}

	var config schema.DefinitionConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest for %s: %s", name, diags.Error())
	}
	if config.Node == nil {
		return nil, fmt.Errorf("manifest for %s declares no node block", name)
	}
	return config.Node, nil
}

// TypeKeyword returns the bare type keyword of a manifest type expression
// ("model", "bool", "number", "int", "string"), or "" if the expression is
// not a keyword.
func TypeKeyword(expr hcl.Expression) string {
	return hcl.ExprAsKeyword(expr)
}

var modelInterface = reflect.TypeOf((*wanvideo.Model)(nil)).Elem()

// Validate performs a strict parity check between a decoded manifest and the
// node's Go input struct: every declared input must map to a bggo-tagged
// field of a compatible Go type, and vice versa.
func Validate(def *schema.NodeDefinition, inputType reflect.Type) error {
	var errs []string

	if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
		errs = append(errs, fmt.Sprintf("node '%s': manifest declares no on_run handler", def.Type))
	}

	declared := make(map[string]*schema.InputDefinition, len(def.Inputs))
	for _, input := range def.Inputs {
		declared[input.Name] = input
	}

	goInputs := make(map[string]reflect.StructField)
	for i := 0; i < inputType.NumField(); i++ {
		field := inputType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("bggo"), ",")[0]
		if tagName != "" && tagName != "-" {
			goInputs[tagName] = field
		}
	}

	for name := range goInputs {
		if _, ok := declared[name]; !ok {
			errs = append(errs, fmt.Sprintf("node '%s': Go struct has field for input '%s' which is not declared in manifest", def.Type, name))
		}
	}
	for name := range declared {
		if _, ok := goInputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("node '%s': manifest declares input '%s' which is not found in Go struct", def.Type, name))
		}
	}

	for name, input := range declared {
		field, ok := goInputs[name]
		if !ok {
			continue
		}
		keyword := TypeKeyword(input.Type)
		if keyword == "" {
			errs = append(errs, fmt.Sprintf("node '%s', input '%s': manifest type is not a bare keyword", def.Type, name))
			continue
		}
		if err := checkFieldType(keyword, field.Type); err != nil {
			errs = append(errs, fmt.Sprintf("node '%s', input '%s': %v", def.Type, name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// checkFieldType matches a manifest type keyword against a Go field type.
func checkFieldType(keyword string, fieldType reflect.Type) error {
	switch keyword {
	case "model":
		if fieldType != modelInterface && !fieldType.Implements(modelInterface) {
			return fmt.Errorf("manifest requires a model but Go field has type %s", fieldType)
		}
	case "bool":
		if fieldType.Kind() != reflect.Bool {
			return fmt.Errorf("manifest requires bool but Go field has type %s", fieldType)
		}
	case "number":
		if fieldType.Kind() != reflect.Float64 {
			return fmt.Errorf("manifest requires number but Go field has type %s", fieldType)
		}
	case "int":
		if fieldType.Kind() != reflect.Int {
			return fmt.Errorf("manifest requires int but Go field has type %s", fieldType)
		}
	case "string":
		if fieldType.Kind() != reflect.String {
			return fmt.Errorf("manifest requires string but Go field has type %s", fieldType)
		}
	default:
		return fmt.Errorf("unknown manifest type keyword %q", keyword)
	}
	return nil
}
