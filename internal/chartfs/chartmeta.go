package chartfs

import (
	"github.com/Masterminds/semver/v3"

	"helm.sh/helm/v3/pkg/chart"
)

// DependencyMeta describes a chart dependency declaration.
type DependencyMeta struct {
	Name       string
	Version    string
	Repository string
	Condition  string
	Tags       []string
}

// ChartMeta wraps key metadata extracted from a loaded Helm chart.
type ChartMeta struct {
	Name         string
	Version      string
	AppVersion   string
	Description  string
	Type         string
	Dependencies []DependencyMeta
	Values       map[string]interface{}
	Schema       []byte

	parsedVersion *semver.Version
}

// Meta extracts metadata from the loaded chart.
func (c *ChartFS) Meta() *ChartMeta {
	return FromChart(c.Chart)
}

// FromChart extracts metadata from a loaded Helm chart.
func FromChart(ch *chart.Chart) *ChartMeta {
	if ch == nil || ch.Metadata == nil {
		return &ChartMeta{}
	}

	meta := &ChartMeta{
		Name:        ch.Metadata.Name,
		Version:     ch.Metadata.Version,
		AppVersion:  ch.Metadata.AppVersion,
		Description: ch.Metadata.Description,
		Type:        ch.Metadata.Type,
		Values:      ch.Values,
		Schema:      ch.Schema,
	}

	if v, err := semver.NewVersion(meta.Version); err == nil {
		meta.parsedVersion = v
	}

	for _, dep := range ch.Metadata.Dependencies {
		meta.Dependencies = append(meta.Dependencies, DependencyMeta{
			Name:       dep.Name,
			Version:    dep.Version,
			Repository: dep.Repository,
			Condition:  dep.Condition,
			Tags:       dep.Tags,
		})
	}

	return meta
}

// IsLibrary returns true if the chart is of type "library". Library
// charts render no manifests of their own, so the inference pipeline
// has nothing to detect resources from; `infer`, `inspect`, `watch` and
// the public Infer API reject such a chart with an error.
func (m *ChartMeta) IsLibrary() bool {
	return m.Type == "library"
}

// HasSchema returns true if the chart ships its own values.schema.json.
// helmschema does not validate against it (Non-goal), and `inspect`
// output does not report it.
func (m *ChartMeta) HasSchema() bool {
	return len(m.Schema) > 0
}

// HasDependencies returns true if the chart declares any dependencies.
func (m *ChartMeta) HasDependencies() bool {
	return len(m.Dependencies) > 0
}

// DependencyNames returns the names of all declared dependencies.
func (m *ChartMeta) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))

	for _, dep := range m.Dependencies {
		names = append(names, dep.Name)
	}

	return names
}

// SemVer returns the chart's parsed version, or nil if Chart.yaml's
// version field isn't valid semver.
func (m *ChartMeta) SemVer() *semver.Version {
	return m.parsedVersion
}
