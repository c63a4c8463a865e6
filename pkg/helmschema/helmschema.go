// Package helmschema provides a public Go API for inferring a JSON
// Schema from a Helm chart's templates without rendering the chart.
//
// This package exposes the helmschema analysis pipeline as a library,
// allowing programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := helmschema.Infer(ctx, "path/to/chart")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(result.YAML))
//
// With options:
//
//	result, err := helmschema.Infer(ctx, "path/to/chart",
//	    helmschema.WithValues([]string{"replicaCount=3"}),
//	    helmschema.WithNoValidate(),
//	)
package helmschema

import (
	"context"
	"errors"
	"fmt"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/helmschema/internal/chartfs"
	"github.com/hupe1980/helmschema/internal/config"
	"github.com/hupe1980/helmschema/internal/helper"
	"github.com/hupe1980/helmschema/internal/interp"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/resource"
	"github.com/hupe1980/helmschema/internal/schema"
	"github.com/hupe1980/helmschema/internal/tmplast"
)

// Option configures the inference pipeline. Use the With* functions to
// create Options.
type Option func(*options)

type options struct {
	valueFiles   []string
	values       []string
	stringValues []string
	fileValues   []string

	inlineExcludePatterns []string
	schemaOverrides       map[string]SchemaOverride

	noValidate bool
}

// WithValueFiles sets paths to additional values files, merged over the
// chart's own values.yaml in order.
func WithValueFiles(files []string) Option { return func(o *options) { o.valueFiles = files } }

// WithValues sets individual value overrides (key=value), Helm --set style.
func WithValues(vals []string) Option { return func(o *options) { o.values = vals } }

// WithStringValues sets individual string value overrides (key=value).
func WithStringValues(vals []string) Option { return func(o *options) { o.stringValues = vals } }

// WithFileValues sets individual file value overrides (key=filepath).
func WithFileValues(vals []string) Option { return func(o *options) { o.fileValues = vals } }

// WithInlineHelperExcludePatterns declares regular expressions matched
// against a helper's full name; a match means the helper is never
// inlined by the interpreter, beyond the built-in "*.defaultValues"
// convention.
func WithInlineHelperExcludePatterns(patterns []string) Option {
	return func(o *options) { o.inlineExcludePatterns = patterns }
}

// SchemaOverride overrides an inferred schema field's type, description,
// or enum values. Keys are dotted Values paths (e.g. "image.tag").
type SchemaOverride struct {
	Type        string
	Description string
	Enum        []string
}

// WithSchemaOverrides overrides inferred schema field types for specific
// dotted Values paths.
func WithSchemaOverrides(overrides map[string]SchemaOverride) Option {
	return func(o *options) { o.schemaOverrides = overrides }
}

// WithNoValidate skips self-validating the composed schema against the
// JSON Schema meta-schema before returning it.
func WithNoValidate() Option { return func(o *options) { o.noValidate = true } }

// Result holds the output of a successful schema inference run.
type Result struct {
	// Schema is the composed JSON Schema, as a JSON-marshalable map.
	Schema map[string]interface{}

	// YAML is the Schema serialized as YAML.
	YAML []byte

	// ChartName is the name of the analyzed chart.
	ChartName string

	// ChartVersion is the version of the analyzed chart.
	ChartVersion string

	// ResourceCount is the number of YAML documents resource detection
	// found across the chart's template files, summed per file; documents
	// whose kind is unknown are counted too.
	ResourceCount int

	// ValueUseCount is the number of distinct .Values.* references the
	// interpreter discovered.
	ValueUseCount int
}

// Infer statically analyzes a Helm chart directory and returns the
// inferred JSON Schema for its values.yaml.
//
// chartDir must be a local directory containing a Chart.yaml. The chart
// is never rendered; every .Values.* reference is discovered by walking
// each template's parsed structure directly.
func Infer(ctx context.Context, chartDir string, opts ...Option) (*Result, error) {
	if chartDir == "" {
		return nil, errors.New("chart directory must not be empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfs, err := chartfs.Load(chartDir)
	if err != nil {
		return nil, fmt.Errorf("loading chart: %w", err)
	}

	meta := cfs.Meta()
	if meta.IsLibrary() {
		return nil, fmt.Errorf("chart %q is a library chart and has no values.yaml surface", meta.Name)
	}

	mergedVals, err := cfs.MergeValues(chartfs.ValuesOptions{
		ValueFiles:   o.valueFiles,
		Values:       o.values,
		StringValues: o.stringValues,
		FileValues:   o.fileValues,
	})
	if err != nil {
		return nil, fmt.Errorf("merging values: %w", err)
	}

	extCfg := extensibilityConfigFromOptions(o)

	files := cfs.TemplateFiles()

	uses, err := collectValueUses(files, extCfg)
	if err != nil {
		return nil, fmt.Errorf("analyzing templates: %w", err)
	}

	composed := schema.Compose(uses, mergedVals, extCfg)

	if !o.noValidate {
		if err := schema.Validate(composed); err != nil {
			return nil, fmt.Errorf("composed schema failed self-validation: %w", err)
		}
	}

	yamlBytes, err := sigsyaml.Marshal(composed)
	if err != nil {
		return nil, fmt.Errorf("serializing schema: %w", err)
	}

	resourceCount := 0
	for _, f := range files {
		resourceCount += len(resource.Detect(f.Data))
	}

	return &Result{
		Schema:        composed,
		YAML:          yamlBytes,
		ChartName:     meta.Name,
		ChartVersion:  meta.Version,
		ResourceCount: resourceCount,
		ValueUseCount: len(uses),
	}, nil
}

// collectValueUses mirrors the CLI's own pipeline wiring (parse every
// template, build the helper index, interpret each file, merge uses):
// kept as a private duplicate here rather than exported from
// internal/cli, since a public package must not depend on the CLI's
// internal implementation details.
func collectValueUses(files []chartfs.TemplateFile, extCfg *config.ExtensibilityConfig) ([]ir.ValueUse, error) {
	type parsedFile struct {
		path      string
		doc       *tmplast.Document
		defs      []tmplast.Definition
		resources []ir.Resource
		err       error
	}

	parsed := make([]parsedFile, len(files))

	for i, f := range files {
		doc, defs, err := tmplast.Parse(f.Path, f.Data, tmplast.FuncMap())
		parsed[i] = parsedFile{
			path:      f.Path,
			doc:       doc,
			defs:      defs,
			resources: resource.Detect(f.Data),
			err:       err,
		}
	}

	helperFiles := make([]helper.ParsedFile, 0, len(parsed))

	for _, p := range parsed {
		if p.err != nil {
			continue
		}

		helperFiles = append(helperFiles, helper.ParsedFile{Path: p.path, Definitions: p.defs})
	}

	idx := helper.NewIndex(helperFiles)
	it := interp.New(idx, extCfg)

	var uses []ir.ValueUse

	for _, p := range parsed {
		if p.err != nil {
			continue
		}

		uses = append(uses, it.Run(p.doc, p.resources)...)
	}

	return ir.SortAndDedup(uses), nil
}

func extensibilityConfigFromOptions(o *options) *config.ExtensibilityConfig {
	if len(o.inlineExcludePatterns) == 0 && len(o.schemaOverrides) == 0 {
		return nil
	}

	overrides := make(map[string]config.SchemaOverride, len(o.schemaOverrides))
	for path, ov := range o.schemaOverrides {
		overrides[path] = config.SchemaOverride{
			Type:        ov.Type,
			Description: ov.Description,
			Enum:        ov.Enum,
		}
	}

	return &config.ExtensibilityConfig{
		InlineHelpers:   config.InlineHelperConfig{ExcludePatterns: o.inlineExcludePatterns},
		SchemaOverrides: overrides,
	}
}
