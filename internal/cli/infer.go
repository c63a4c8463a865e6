package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/helmschema/internal/chartfs"
	"github.com/hupe1980/helmschema/internal/config"
	"github.com/hupe1980/helmschema/internal/helper"
	"github.com/hupe1980/helmschema/internal/interp"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/k8sschema"
	"github.com/hupe1980/helmschema/internal/logging"
	"github.com/hupe1980/helmschema/internal/resource"
	"github.com/hupe1980/helmschema/internal/schema"
	"github.com/hupe1980/helmschema/internal/tmplast"
)

type inferOptions struct {
	valueFiles   []string
	values       []string
	stringValues []string
	fileValues   []string

	output  string
	noValid bool
}

func newInferCommand() *cobra.Command {
	opts := &inferOptions{}

	cmd := &cobra.Command{
		Use:   "infer <chart-directory>",
		Short: "Infer a JSON Schema for a chart's values.yaml",
		Long: `Statically analyze a Helm chart directory's templates and print the
inferred JSON Schema for its values.yaml to stdout (or --output).

The chart is never rendered: every .Values.* reference is discovered by
walking each template's parsed structure directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerValuesFlags(cmd, &opts.valueFiles, &opts.values, &opts.stringValues, &opts.fileValues)

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")
	f.BoolVar(&opts.noValid, "no-validate", false, "skip self-validating the composed schema")

	return cmd
}

func runInfer(ctx context.Context, cmd *cobra.Command, chartDir string, opts *inferOptions) error {
	logger := logging.FromContext(ctx)

	doc, err := inferChart(ctx, chartDir, opts)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	yamlBytes, err := sigsyaml.Marshal(doc)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("serializing schema: %w", err)}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, yamlBytes, 0o600); err != nil {
			return &ExitError{Code: 6, Err: fmt.Errorf("writing output: %w", err)}
		}

		logger.Info("schema written", slog.String("path", opts.output))

		return nil
	}

	if _, err := cmd.OutOrStdout().Write(yamlBytes); err != nil {
		return &ExitError{Code: 6, Err: fmt.Errorf("writing output: %w", err)}
	}

	return nil
}

// inferChart runs the full pipeline — chart load, value merge, per-file
// parse + interpret, schema compose — and returns the composed schema.
func inferChart(ctx context.Context, chartDir string, opts *inferOptions) (map[string]interface{}, error) {
	logger := logging.FromContext(ctx)

	cfs, err := chartfs.Load(chartDir)
	if err != nil {
		return nil, err
	}

	if cfs.Meta().IsLibrary() {
		return nil, fmt.Errorf("chart %q is a library chart", cfs.Meta().Name)
	}

	values, err := cfs.MergeValues(chartfs.ValuesOptions{
		ValueFiles:   opts.valueFiles,
		Values:       opts.values,
		StringValues: opts.stringValues,
		FileValues:   opts.fileValues,
	})
	if err != nil {
		return nil, fmt.Errorf("merging values: %w", err)
	}

	extCfg, err := loadExtensibilityConfig(ctx)
	if err != nil {
		return nil, err
	}

	files := cfs.TemplateFiles()

	uses, err := collectValueUses(files, extCfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("analysis complete",
		slog.Int("templates", len(files)),
		slog.Int("valueUses", len(uses)),
	)

	composed := schema.Compose(uses, values, extCfg)

	if !opts.noValid {
		if err := schema.Validate(composed); err != nil {
			return nil, fmt.Errorf("composed schema failed self-validation: %w", err)
		}
	}

	return composed, nil
}

// collectValueUses parses every template file in the chart, builds the
// Helper Index from every file's definitions, then interprets each
// file's renderable body, merging the resulting value uses.
func collectValueUses(files []chartfs.TemplateFile, extCfg *config.ExtensibilityConfig) ([]ir.ValueUse, error) {
	type parsed struct {
		path      string
		doc       *tmplast.Document
		defs      []tmplast.Definition
		resources []ir.Resource
		err       error
	}

	parsedFiles := make([]parsed, len(files))

	for i, f := range files {
		doc, defs, err := tmplast.Parse(f.Path, f.Data, tmplast.FuncMap())
		parsedFiles[i] = parsed{
			path:      f.Path,
			doc:       doc,
			defs:      defs,
			resources: resource.Detect(f.Data),
			err:       err,
		}
	}

	helperFiles := make([]helper.ParsedFile, 0, len(parsedFiles))

	for _, p := range parsedFiles {
		if p.err != nil {
			continue
		}

		helperFiles = append(helperFiles, helper.ParsedFile{Path: p.path, Definitions: p.defs})
	}

	idx := helper.NewIndex(helperFiles)
	it := interp.New(idx, extCfg)

	var uses []ir.ValueUse

	for _, p := range parsedFiles {
		if p.err != nil {
			// Parse failure: the file contributes no uses; analysis
			// continues over the rest of the chart (§7).
			continue
		}

		uses = append(uses, it.Run(p.doc, p.resources)...)
	}

	return ir.SortAndDedup(uses), nil
}

// k8sAnnotate cross-checks each value use against the built-in
// Kubernetes field schema table, keyed by the use's SourceExpr. Not
// wired into the default infer output — the composed schema already
// stands on its own per spec — but available to callers (e.g. inspect)
// that want cross-checked field types.
func k8sAnnotate(uses []ir.ValueUse) map[string]map[string]interface{} {
	provider := k8sschema.New()
	out := map[string]map[string]interface{}{}

	for _, u := range uses {
		if u.Resource.Empty() {
			continue
		}

		frag := provider.SchemaForPath(u.Resource, u.Path)
		if frag == nil {
			continue
		}

		out[string(u.SourceExpr)] = frag
	}

	return out
}

func loadExtensibilityConfig(ctx context.Context) (*config.ExtensibilityConfig, error) {
	path := config.ConfigFileFromContext(ctx)
	if path == "" {
		path = config.FromContext(ctx).ConfigFile
	}

	if path == "" {
		return nil, nil //nolint:nilnil // no config file resolved, nothing to parse
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // auto-discovery found nothing
		}

		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	cfg, err := config.ParseExtensibilityConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parsing extensibility config %q: %w", path, err)
	}

	return cfg, nil
}
