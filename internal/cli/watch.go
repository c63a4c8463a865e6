package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/helmschema/internal/watch"
)

type watchOptions struct {
	inferOptions

	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <chart-directory>",
		Short: "Watch a chart and re-infer its schema on change",
		Long: `Watch monitors a Helm chart directory for file changes and
automatically re-runs schema inference when templates or values files
are modified.

File changes are debounced to avoid rapid re-runs. Each regeneration
reports resource and schema field counts, and any schema drift since
the previous run (fields added, removed, or types changed).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerValuesFlags(cmd, &opts.valueFiles, &opts.values, &opts.stringValues, &opts.fileValues)

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "write each re-inferred schema to this path (when unset, the schema is not written)")
	f.BoolVar(&opts.noValid, "no-validate", false, "skip self-validating each composed schema")
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, chartDir string, opts *watchOptions) error {
	var prevSchema map[string]interface{}

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		composed, err := inferChart(fnCtx, chartDir, &opts.inferOptions)
		if err != nil {
			return nil, err
		}

		var changes []watch.SchemaChange
		if prevSchema != nil {
			changes = watch.SchemaDiff(prevSchema, composed)
		}

		prevSchema = composed

		resourceCount, fieldCount := schemaCounts(composed)

		if opts.output != "" {
			if err := writeSchema(opts.output, composed); err != nil {
				return nil, err
			}
		}

		return &watch.RunResult{
			ResourceCount: resourceCount,
			SchemaFields:  fieldCount,
			SchemaChanges: changes,
			OutputPath:    opts.output,
		}, nil
	}

	watchOpts := watch.Options{
		ChartDir:   chartDir,
		ExtraFiles: opts.valueFiles,
		Debounce:   opts.debounce,
		Out:        cmd.ErrOrStderr(),
	}

	if err := watch.Run(ctx, watchOpts, runFn); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}

// schemaCounts reports the number of top-level properties in a composed
// schema (taken as a proxy for the chart's resource count, since the
// composer doesn't track resources directly) and the total number of
// leaf fields it defines.
func schemaCounts(doc map[string]interface{}) (resources int, fields int) {
	props, ok := doc["properties"].(map[string]interface{})
	if !ok {
		return 0, 0
	}

	fields = countLeaves(props)
	resources = len(props)

	return resources, fields
}

func countLeaves(props map[string]interface{}) int {
	count := 0

	for _, raw := range props {
		field, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		if nested, ok := field["properties"].(map[string]interface{}); ok {
			count += countLeaves(nested)
			continue
		}

		if items, ok := field["items"].(map[string]interface{}); ok {
			if nested, ok := items["properties"].(map[string]interface{}); ok {
				count += countLeaves(nested)
				continue
			}
		}

		count++
	}

	return count
}

func writeSchema(path string, doc map[string]interface{}) error {
	yamlBytes, err := sigsyaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializing schema: %w", err)
	}

	if err := os.WriteFile(path, yamlBytes, 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}
