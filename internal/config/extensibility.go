package config

import (
	"fmt"
	"regexp"

	sigsyaml "sigs.k8s.io/yaml"
)

// ExtensibilityConfig holds declarative overrides to the interpreter's
// inline helper convention (§6) and to the schema composer's per-path
// type inference, loaded from the config file (.helmschema.yaml).
type ExtensibilityConfig struct {
	// InlineHelpers lists additional helper-name patterns that should
	// never be inlined, beyond the built-in "*.defaultValues" convention.
	InlineHelpers InlineHelperConfig `json:"inlineHelpers,omitempty"`

	// SchemaOverrides override the inferred JSON Schema type for a
	// specific dotted value path.
	SchemaOverrides map[string]SchemaOverride `json:"schemaOverrides,omitempty"`
}

// InlineHelperConfig configures which named helpers participate in
// inlining and which are file-inlining helpers (§6's "Inline helper
// convention").
type InlineHelperConfig struct {
	// ExcludePatterns are regular expressions matched against a helper's
	// full name; a match means the helper is never inlined (it only
	// establishes defaults, like the built-in "*.defaultValues" suffix).
	ExcludePatterns []string `json:"excludePatterns,omitempty"`

	// FileInliners maps a helper name (e.g. "nats.loadMergePatch") to the
	// set of string-literal argument keys it consumes ("merge", "patch").
	FileInliners map[string][]string `json:"fileInliners,omitempty"`
}

// SchemaOverride allows overriding the inferred type of a schema field.
type SchemaOverride struct {
	// Type overrides the inferred type (string, integer, number, boolean,
	// array, object).
	Type string `json:"type"`

	// Description overrides the generated field description.
	Description string `json:"description,omitempty"`

	// Enum overrides the allowed literal values for the field.
	Enum []string `json:"enum,omitempty"`
}

// ParseExtensibilityConfig parses the inlineHelpers and schemaOverrides
// sections from raw config file bytes.
func ParseExtensibilityConfig(data []byte) (*ExtensibilityConfig, error) {
	var raw struct {
		InlineHelpers   InlineHelperConfig        `json:"inlineHelpers,omitempty"`
		SchemaOverrides map[string]SchemaOverride `json:"schemaOverrides,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing extensibility config: %w", err)
	}

	cfg := &ExtensibilityConfig{
		InlineHelpers:   raw.InlineHelpers,
		SchemaOverrides: raw.SchemaOverrides,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validOverrideTypes = map[string]bool{
	"string": true, "integer": true, "number": true, "boolean": true,
	"array": true, "object": true,
}

// Validate checks the extensibility config for correctness.
func (c *ExtensibilityConfig) Validate() error {
	for _, pattern := range c.InlineHelpers.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("inlineHelpers.excludePatterns: invalid pattern %q: %w", pattern, err)
		}
	}

	for name, keys := range c.InlineHelpers.FileInliners {
		if name == "" {
			return fmt.Errorf("inlineHelpers.fileInliners: helper name must not be empty")
		}

		if len(keys) == 0 {
			return fmt.Errorf("inlineHelpers.fileInliners[%s]: must list at least one argument key", name)
		}
	}

	for field, override := range c.SchemaOverrides {
		if override.Type != "" && !validOverrideTypes[override.Type] {
			return fmt.Errorf("schemaOverrides[%s]: invalid type %q", field, override.Type)
		}
	}

	return nil
}

// IsEmpty returns true if the config has no overrides.
func (c *ExtensibilityConfig) IsEmpty() bool {
	return len(c.InlineHelpers.ExcludePatterns) == 0 &&
		len(c.InlineHelpers.FileInliners) == 0 &&
		len(c.SchemaOverrides) == 0
}

// ExcludesHelper reports whether name matches a configured exclude
// pattern, in addition to the built-in "*.defaultValues" suffix rule.
func (c *InlineHelperConfig) ExcludesHelper(name string) bool {
	const builtinSuffix = ".defaultValues"
	if len(name) >= len(builtinSuffix) && name[len(name)-len(builtinSuffix):] == builtinSuffix {
		return true
	}

	for _, pattern := range c.ExcludePatterns {
		if re, err := regexp.Compile(pattern); err == nil && re.MatchString(name) {
			return true
		}
	}

	return false
}
