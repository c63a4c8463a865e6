// Package chartfs loads a Helm chart directory into a *chart.Chart and
// exposes its template files and merged values for the inference
// pipeline. Per this tool's Non-goal of never rendering, it never
// invokes the Helm template engine — it only reads the chart's static
// files (Chart.yaml, values.yaml, values.schema.json, templates/*).
//
// Only local directories are supported (no repository index, no OCI
// registry pull): chart acquisition over a network is thin I/O outside
// this tool's scope.
package chartfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	helmloader "helm.sh/helm/v3/pkg/chart/loader"

	"helm.sh/helm/v3/pkg/chart"
)

// ChartFS wraps a loaded Helm chart directory.
type ChartFS struct {
	Chart *chart.Chart
	Root  string
}

// Load reads a chart from a local directory. dir must contain a
// Chart.yaml at its root, exactly as Helm itself requires.
func Load(dir string) (*ChartFS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("chart directory %q: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("chart reference %q is not a directory", dir)
	}

	chartYAMLPath := filepath.Join(dir, "Chart.yaml")
	if _, err := os.Stat(chartYAMLPath); err != nil {
		return nil, fmt.Errorf("chart directory %q has no Chart.yaml: %w", dir, err)
	}

	ch, err := helmloader.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading chart from %q: %w", dir, err)
	}

	return &ChartFS{Chart: ch, Root: dir}, nil
}

// TemplateFile is one *.yaml/*.tpl file under templates/, including
// those of subcharts, with its raw (unrendered) contents.
type TemplateFile struct {
	// Path is the chart-relative path, e.g. "templates/deployment.yaml"
	// or "charts/postgresql/templates/secret.yaml".
	Path string
	Data string
	// Subchart is the dependency chart name this file belongs to, or ""
	// for the root chart's own templates.
	Subchart string
}

// TemplateFiles returns every .yaml/.yml/.tpl template file in the
// chart and its subcharts, in a stable (path-sorted) order. Helper
// files such as _helpers.tpl are included: callers distinguish helper
// bodies from renderable document bodies via the definitions
// tmplast.Parse returns, not by filename convention, since Helm itself
// doesn't enforce one.
func (c *ChartFS) TemplateFiles() []TemplateFile {
	var out []TemplateFile

	var walk func(ch *chart.Chart, prefix string)

	walk = func(ch *chart.Chart, prefix string) {
		for _, tpl := range ch.Templates {
			if !strings.HasSuffix(tpl.Name, ".yaml") && !strings.HasSuffix(tpl.Name, ".yml") && !strings.HasSuffix(tpl.Name, ".tpl") {
				continue
			}

			// tpl.Name already carries Helm's own "templates/..." prefix
			// (and, for a loaded directory, the chart's own directory
			// name ahead of that); normalize to just the templates/...
			// suffix so Path stays stable across how the chart was loaded.
			name := tpl.Name
			if idx := strings.Index(name, "templates"+string(filepath.Separator)); idx >= 0 {
				name = name[idx:]
			}

			out = append(out, TemplateFile{
				Path:     filepath.Join(prefix, name),
				Data:     string(tpl.Data),
				Subchart: subchartName(prefix),
			})
		}

		for _, dep := range ch.Dependencies() {
			walk(dep, filepath.Join(prefix, "charts", dep.Name()))
		}
	}

	walk(c.Chart, "")

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

func subchartName(prefix string) string {
	const marker = "charts" + string(filepath.Separator)

	idx := strings.LastIndex(prefix, marker)
	if idx < 0 {
		return ""
	}

	rest := prefix[idx+len(marker):]

	return strings.SplitN(rest, string(filepath.Separator), 2)[0]
}
