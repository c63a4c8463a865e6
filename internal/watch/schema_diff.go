package watch

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaChange describes a single change to the composed values schema
// between two consecutive inference runs.
type SchemaChange struct {
	// Kind is one of "added", "removed", or "type-changed".
	Kind string
	// Field is the dotted path of the schema field.
	Field string
	// Detail provides extra information (e.g. old and new type).
	Detail string
}

// SchemaDiff compares two composed JSON Schema documents and returns the
// leaf-level changes between them. Only "properties" and "items" are walked; the
// composer's "required" list and "oneOf" leaves are summarized through
// each leaf's reported type.
func SchemaDiff(prev, curr map[string]interface{}) []SchemaChange {
	prevLeaves := flattenSchema("", prev)
	currLeaves := flattenSchema("", curr)

	var changes []SchemaChange

	for path, pt := range prevLeaves {
		if _, ok := currLeaves[path]; !ok {
			changes = append(changes, SchemaChange{Kind: "removed", Field: path, Detail: pt})
		}
	}

	for path, ct := range currLeaves {
		pt, existed := prevLeaves[path]
		if !existed {
			changes = append(changes, SchemaChange{Kind: "added", Field: path, Detail: ct})
			continue
		}

		if pt != ct {
			changes = append(changes, SchemaChange{
				Kind:   "type-changed",
				Field:  path,
				Detail: fmt.Sprintf("%s -> %s", pt, ct),
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	return changes
}

// SchemaDiffSummary returns a human-readable one-line summary.
func SchemaDiffSummary(changes []SchemaChange) string {
	var added, removed, changed int

	for _, c := range changes {
		switch c.Kind {
		case "added":
			added++
		case "removed":
			removed++
		case "type-changed":
			changed++
		}
	}

	if added == 0 && removed == 0 && changed == 0 {
		return "no schema changes"
	}

	parts := make([]string, 0, 3)

	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d field(s) added", added))
	}

	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d field(s) removed", removed))
	}

	if changed > 0 {
		parts = append(parts, fmt.Sprintf("~%d type(s) changed", changed))
	}

	return strings.Join(parts, ", ")
}

// flattenSchema walks a composed schema's "properties"/"items" tree and
// returns a dotted-path -> type map for every leaf field it finds.
func flattenSchema(prefix string, schemaDoc map[string]interface{}) map[string]string {
	result := map[string]string{}

	props, ok := schemaDoc["properties"].(map[string]interface{})
	if !ok {
		if items, ok := schemaDoc["items"].(map[string]interface{}); ok {
			for k, v := range flattenSchema(prefix, items) {
				result[k] = v
			}
		}

		return result
	}

	for name, raw := range props {
		field, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if _, hasProps := field["properties"]; hasProps {
			for k, v := range flattenSchema(path, field) {
				result[k] = v
			}

			continue
		}

		if _, hasItems := field["items"]; hasItems {
			for k, v := range flattenSchema(path, field) {
				result[k] = v
			}

			continue
		}

		result[path] = leafType(field)
	}

	return result
}

func leafType(field map[string]interface{}) string {
	if t, ok := field["type"].(string); ok {
		return t
	}

	if _, ok := field["oneOf"]; ok {
		return "oneOf"
	}

	return "unknown"
}
