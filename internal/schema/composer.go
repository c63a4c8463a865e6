// Package schema composes a JSON Schema for a chart's values.yaml from
// the ir.ValueUse stream the interpreter emits: object nesting from
// dotted paths, required fields derived from absent guards, and
// oneOf/type-widening when two uses of the same path disagree.
package schema

import (
	"sort"

	"github.com/hupe1980/helmschema/internal/config"
	"github.com/hupe1980/helmschema/internal/ir"
)

// node accumulates everything seen for one dotted Values path across
// every ir.ValueUse that references it (or an ancestor/descendant of
// it), before being rendered into a JSON Schema fragment.
type node struct {
	children map[string]*node // object properties, keyed by field name
	item     *node            // set when this path was ranged over (array items)
	types    map[string]bool  // distinct inferred JSON Schema types seen at this exact path
	required bool             // true unless some use of this exact path was guarded
	sawUse   bool             // true once any use directly names this path (vs. only an ancestor)
}

func newNode() *node {
	return &node{children: map[string]*node{}, types: map[string]bool{}, required: true}
}

func (n *node) child(name string) *node {
	c, ok := n.children[name]
	if !ok {
		c = newNode()
		n.children[name] = c
	}

	return c
}

func (n *node) arrayItem() *node {
	if n.item == nil {
		n.item = newNode()
	}

	return n.item
}

// Compose builds a JSON Schema object (as a JSON-marshalable map) from
// every use path in uses, inferring each leaf's type from its value in
// defaults (the chart's merged values.yaml), and applying any path
// overrides from cfg. Default values themselves are not emitted.
func Compose(uses []ir.ValueUse, defaults map[string]interface{}, cfg *config.ExtensibilityConfig) map[string]interface{} {
	root := newNode()

	for _, u := range uses {
		insert(root, u.SourceExpr.Segments(), defaults, len(u.Guards) == 0)
	}

	return render(root, "", overridesOf(cfg))
}

func overridesOf(cfg *config.ExtensibilityConfig) map[string]config.SchemaOverride {
	if cfg == nil {
		return nil
	}

	return cfg.SchemaOverrides
}

// insert walks segs (a Values path split on ".") into the node tree,
// creating object/array structure as needed, and records the leaf's
// required-ness and inferred type. defaultValue is the raw decoded
// default (map, slice, scalar, or nil) still rooted at the path segs
// describes, so a wildcard segment can inspect a slice's first element.
func insert(n *node, segs []string, defaultValue interface{}, unguarded bool) {
	if len(segs) == 0 {
		return
	}

	seg := segs[0]
	rest := segs[1:]

	if seg == "*" {
		item := n.arrayItem()
		elem := firstElement(defaultValue)

		if len(rest) == 0 {
			item.sawUse = true
			item.required = item.required && unguarded
			item.types[inferType(elem)] = true

			return
		}

		insert(item, rest, elem, unguarded)

		return
	}

	child := n.child(seg)
	childDefault := fieldValue(defaultValue, seg)

	if len(rest) == 0 {
		child.sawUse = true

		if !unguarded {
			child.required = false
		}

		child.types[inferType(childDefault)] = true

		return
	}

	insert(child, rest, childDefault, unguarded)
}

func fieldValue(v interface{}, key string) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}

	return m[key]
}

func firstElement(v interface{}) interface{} {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return nil
	}

	return arr[0]
}

// render turns the accumulated tree into a JSON Schema fragment.
// fullPath is the dotted Values path to this node, used for override
// lookups.
func render(n *node, fullPath string, overrides map[string]config.SchemaOverride) map[string]interface{} {
	if n.item != nil {
		return map[string]interface{}{
			"type":  "array",
			"items": render(n.item, joinPath(fullPath, "*"), overrides),
		}
	}

	if len(n.children) == 0 {
		return leafSchema(n, fullPath, overrides)
	}

	props := map[string]interface{}{}
	required := make([]string, 0, len(n.children))

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		child := n.children[name]
		childPath := joinPath(fullPath, name)

		props[name] = render(child, childPath, overrides)

		if child.required && child.sawUse {
			required = append(required, name)
		}
	}

	out := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}

	if len(required) > 0 {
		out["required"] = required
	}

	return out
}

func leafSchema(n *node, fullPath string, overrides map[string]config.SchemaOverride) map[string]interface{} {
	if ov, ok := overrides[fullPath]; ok {
		out := map[string]interface{}{"type": ov.Type}
		if ov.Description != "" {
			out["description"] = ov.Description
		}

		if len(ov.Enum) > 0 {
			enum := make([]interface{}, len(ov.Enum))
			for i, e := range ov.Enum {
				enum[i] = e
			}

			out["enum"] = enum
		}

		return out
	}

	types := sortedTypes(n.types)

	if len(types) <= 1 {
		t := "string"
		if len(types) == 1 {
			t = types[0]
		}

		return map[string]interface{}{"type": t}
	}

	// Two or more uses of the same path disagreed on inferred type:
	// widen instead of picking one arbitrarily.
	variants := make([]interface{}, len(types))
	for i, t := range types {
		variants[i] = map[string]interface{}{"type": t}
	}

	return map[string]interface{}{"oneOf": variants}
}

func sortedTypes(types map[string]bool) []string {
	out := make([]string, 0, len(types))
	for t := range types {
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}

	return base + "." + seg
}

// inferType infers a JSON Schema primitive type from a Go value decoded
// from YAML/JSON.
func inferType(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "string"
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64:
		if v == float64(int64(v)) {
			return "integer"
		}

		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "string"
	}
}
