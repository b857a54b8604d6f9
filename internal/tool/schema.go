package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// orderKey records parameter order inside the JSON schema, since object
// properties lose their order once decoded into a map.
const orderKey = "x-order"

// Schema renders the descriptor as a JSON schema object
func (d Descriptor) Schema() map[string]any {
	properties := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))

	for i, p := range d.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
			orderKey:      i,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// DescriptorFromSchema rebuilds a descriptor from a JSON schema object as
// produced by Schema or by any server following the same conventions.
func DescriptorFromSchema(name, description string, schema map[string]any) (Descriptor, error) {
	d := Descriptor{Name: name, Description: description}
	if schema == nil {
		return d, nil
	}

	if typ, ok := schema["type"]; ok && typ != "object" {
		return d, fmt.Errorf("tool %s: parameters schema must have type object (got %v)", name, typ)
	}

	required := make(map[string]bool)
	switch list := schema["required"].(type) {
	case []string:
		for _, r := range list {
			required[r] = true
		}
	case []any:
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	type ordered struct {
		order int
		param Param
	}
	params := make([]ordered, 0, len(properties))

	for propName, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			return d, fmt.Errorf("tool %s: property %s is not an object", name, propName)
		}

		p := Param{Name: propName, Required: required[propName], Default: prop["default"]}
		p.Type, _ = propType(prop["type"])
		p.Description, _ = prop["description"].(string)
		p.Minimum = number(prop["minimum"])
		p.Maximum = number(prop["maximum"])

		order := len(properties)
		switch v := prop[orderKey].(type) {
		case float64:
			order = int(v)
		case int:
			order = v
		}
		params = append(params, ordered{order: order, param: p})
	}

	sort.SliceStable(params, func(i, j int) bool {
		if params[i].order != params[j].order {
			return params[i].order < params[j].order
		}
		if params[i].param.Required != params[j].param.Required {
			return params[i].param.Required
		}
		return params[i].param.Name < params[j].param.Name
	})

	for _, p := range params {
		d.Params = append(d.Params, p.param)
	}
	return d, nil
}

func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func propType(v any) (ParamType, bool) {
	switch t := v.(type) {
	case string:
		return ParamType(t), true
	case []any:
		// ["integer", "null"] style unions: keep the first concrete type
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return ParamType(s), true
			}
		}
	}
	return TypeString, false
}

// compileSchema compiles the descriptor schema for argument validation
func compileSchema(d Descriptor) (*jsonschema.Schema, error) {
	data, err := json.Marshal(d.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", d.Name, err)
	}

	schema, err := jsonschema.CompileString("mem://tools/"+d.Name+".json", string(data))
	if err != nil {
		return nil, fmt.Errorf("invalid schema for %s: %w", d.Name, err)
	}
	return schema, nil
}

// describeValidationError flattens a jsonschema error into one line that
// names the offending argument.
func describeValidationError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	location := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if location == "" {
		return leaf.Message
	}
	return fmt.Sprintf("invalid value for %s: %s", location, leaf.Message)
}
