package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/helmschema/internal/chartfs"
	"github.com/hupe1980/helmschema/internal/helper"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/k8s"
	"github.com/hupe1980/helmschema/internal/logging"
	"github.com/hupe1980/helmschema/internal/resource"
	"github.com/hupe1980/helmschema/internal/tmplast"
)

type inspectOptions struct {
	valueFiles   []string
	values       []string
	stringValues []string

	showResources bool
	showValues    bool
	format        string
}

func newInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <chart-directory>",
		Short: "Inspect a chart's detected resources and value uses",
		Long: `Inspect a Helm chart directory: list the Kubernetes resource kinds its
templates describe, the helpers it defines, and the .Values.* paths the
interpreter discovered, cross-checked against the built-in Kubernetes
field schema where one is known — all without rendering the chart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerValuesFlags(cmd, &opts.valueFiles, &opts.values, &opts.stringValues, nil)

	f := cmd.Flags()
	f.BoolVar(&opts.showResources, "show-resources", false, "show only the resource table")
	f.BoolVar(&opts.showValues, "show-values", false, "show only the value-use table")
	f.StringVar(&opts.format, "format", "table", "output format: table, json, yaml")

	return cmd
}

type inspectResult struct {
	Chart     chartInfo      `json:"chart"`
	Resources []resourceInfo `json:"resources"`
	Helpers   []string       `json:"helpers,omitempty"`
	Values    []valueUseInfo `json:"values,omitempty"`
}

type chartInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	AppVersion  string `json:"appVersion,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

type resourceInfo struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion,omitempty"`
	Category   string `json:"category,omitempty"`
	Subchart   string `json:"subchart,omitempty"`
	SourceFile string `json:"sourceFile"`
}

type valueUseInfo struct {
	Path       string   `json:"path"`
	YAMLPath   string   `json:"yamlPath"`
	Required   bool     `json:"required"`
	Resource   string   `json:"resource,omitempty"`
	K8sType    string   `json:"k8sType,omitempty"`
	GuardCount int      `json:"guardCount"`
	Guards     []string `json:"guards,omitempty"`
}

func runInspect(ctx context.Context, cmd *cobra.Command, chartDir string, opts *inspectOptions) error {
	logger := logging.FromContext(ctx)

	cfs, err := chartfs.Load(chartDir)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	if cfs.Meta().IsLibrary() {
		return &ExitError{Code: 1, Err: fmt.Errorf("chart %q is a library chart", cfs.Meta().Name)}
	}

	extCfg, err := loadExtensibilityConfig(ctx)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	files := cfs.TemplateFiles()

	uses, err := collectValueUses(files, extCfg)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	logger.Debug("inspection complete", slog.Int("templates", len(files)), slog.Int("valueUses", len(uses)))

	result := buildInspectResult(cfs, files, uses)

	w := cmd.OutOrStdout()
	showAll := !opts.showResources && !opts.showValues

	switch opts.format {
	case "json":
		return renderInspectJSON(w, result)
	case "yaml":
		return renderInspectYAML(w, result)
	case "table":
		return renderInspectTable(w, result, showAll, opts)
	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unknown format %q: expected table, json, yaml", opts.format)}
	}
}

func buildInspectResult(cfs *chartfs.ChartFS, files []chartfs.TemplateFile, uses []ir.ValueUse) inspectResult {
	meta := cfs.Meta()

	result := inspectResult{
		Chart: chartInfo{
			Name:        meta.Name,
			Version:     meta.Version,
			AppVersion:  meta.AppVersion,
			Description: meta.Description,
			Type:        meta.Type,
		},
	}

	var defs []helper.ParsedFile

	for _, f := range files {
		_, fileDefs, err := tmplast.Parse(f.Path, f.Data, tmplast.FuncMap())
		if err != nil {
			continue
		}

		defs = append(defs, helper.ParsedFile{Path: f.Path, Definitions: fileDefs})

		for _, res := range resource.Detect(f.Data) {
			if res.Empty() {
				continue
			}

			result.Resources = append(result.Resources, resourceInfo{
				Kind:       res.Kind,
				APIVersion: res.APIVersion,
				Category:   k8s.Category(res.APIVersion, res.Kind),
				Subchart:   f.Subchart,
				SourceFile: f.Path,
			})
		}
	}

	sort.Slice(result.Resources, func(i, j int) bool {
		if result.Resources[i].SourceFile != result.Resources[j].SourceFile {
			return result.Resources[i].SourceFile < result.Resources[j].SourceFile
		}

		return result.Resources[i].Kind < result.Resources[j].Kind
	})

	idx := helper.NewIndex(defs)
	result.Helpers = idx.Names()

	k8sFrags := k8sAnnotate(uses)

	for _, u := range uses {
		guardStrs := make([]string, len(u.Guards))
		for i, g := range u.Guards {
			guardStrs[i] = g.String()
		}

		info := valueUseInfo{
			Path:       string(u.SourceExpr),
			YAMLPath:   u.Path.String(),
			Required:   len(u.Guards) == 0,
			GuardCount: len(u.Guards),
			Guards:     guardStrs,
		}

		if !u.Resource.Empty() {
			info.Resource = u.Resource.String()
		}

		if frag, ok := k8sFrags[string(u.SourceExpr)]; ok {
			if t, ok := frag["type"].(string); ok {
				info.K8sType = t
			}
		}

		result.Values = append(result.Values, info)
	}

	return result
}

func renderInspectJSON(w io.Writer, result inspectResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func renderInspectYAML(w io.Writer, result inspectResult) error {
	data, err := sigsyaml.Marshal(result)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

func renderInspectTable(w io.Writer, result inspectResult, showAll bool, opts *inspectOptions) error {
	if showAll || opts.showResources {
		printInspectChartInfo(w, result)
		printInspectResourceTable(w, result)
		printInspectHelpers(w, result)
	}

	if showAll || opts.showValues {
		printInspectValueTable(w, result)
	}

	return nil
}

func printInspectChartInfo(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n=== Chart: %s ===\n", result.Chart.Name)
	_, _ = fmt.Fprintf(w, "Version:     %s\n", result.Chart.Version)

	if result.Chart.AppVersion != "" {
		_, _ = fmt.Fprintf(w, "App Version: %s\n", result.Chart.AppVersion)
	}

	if result.Chart.Description != "" {
		_, _ = fmt.Fprintf(w, "Description: %s\n", result.Chart.Description)
	}
}

func printInspectResourceTable(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n--- Resources (%d) ---\n", len(result.Resources))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tAPIVERSION\tCATEGORY\tSUBCHART\tSOURCE")

	for _, r := range result.Resources {
		sc := r.Subchart
		if sc == "" {
			sc = "(root)"
		}

		cat := r.Category
		if cat == "" {
			cat = "-"
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Kind, r.APIVersion, cat, sc, r.SourceFile)
	}

	_ = tw.Flush()
}

func printInspectHelpers(w io.Writer, result inspectResult) {
	if len(result.Helpers) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "\n--- Helpers (%d) ---\n", len(result.Helpers))

	for _, h := range result.Helpers {
		_, _ = fmt.Fprintf(w, "  %s\n", h)
	}
}

func printInspectValueTable(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n--- Value Uses (%d) ---\n", len(result.Values))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tYAML PATH\tREQUIRED\tRESOURCE\tK8S TYPE")

	for _, v := range result.Values {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", v.Path, v.YAMLPath, v.Required, v.Resource, v.K8sType)
	}

	_ = tw.Flush()
}
