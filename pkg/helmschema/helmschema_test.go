package helmschema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestChart(t *testing.T, dir, name string) string {
	t.Helper()

	chartDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(chartDir, "templates"), 0o750))

	chartYAML := "apiVersion: v2\nname: " + name + "\nversion: 1.0.0\ntype: application\n"
	require.NoError(t, os.WriteFile(filepath.Join(chartDir, "Chart.yaml"), []byte(chartYAML), 0o600))

	valuesYAML := "replicaCount: 1\nimage:\n  repository: nginx\n  tag: latest\n"
	require.NoError(t, os.WriteFile(filepath.Join(chartDir, "values.yaml"), []byte(valuesYAML), 0o600))

	deployTmpl := `apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .Release.Name }}
spec:
  replicas: {{ .Values.replicaCount }}
  template:
    spec:
      containers:
        - name: {{ .Release.Name }}
          image: "{{ .Values.image.repository }}:{{ .Values.image.tag }}"
{{- if .Values.nodeSelector }}
          nodeSelector: {{ .Values.nodeSelector | toYaml }}
{{- end }}
`
	require.NoError(t, os.WriteFile(filepath.Join(chartDir, "templates", "deployment.yaml"), []byte(deployTmpl), 0o600))

	return chartDir
}

func TestInfer_ComposesSchema(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	result, err := Infer(context.Background(), chartDir)
	require.NoError(t, err)

	assert.Equal(t, "my-chart", result.ChartName)
	assert.Equal(t, "1.0.0", result.ChartVersion)
	assert.NotZero(t, result.ResourceCount)
	assert.NotZero(t, result.ValueUseCount)
	assert.Contains(t, string(result.YAML), "replicaCount")

	props, ok := result.Schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "replicaCount")
	assert.Contains(t, props, "image")
}

func TestInfer_EmptyChartDir(t *testing.T) {
	_, err := Infer(context.Background(), "")
	require.Error(t, err)
}

func TestInfer_InvalidChartDir(t *testing.T) {
	_, err := Infer(context.Background(), "/nonexistent/chart/dir/12345")
	require.Error(t, err)
}

func TestInfer_RejectsLibraryChart(t *testing.T) {
	dir := t.TempDir()
	chartDir := filepath.Join(dir, "lib-chart")
	require.NoError(t, os.MkdirAll(filepath.Join(chartDir, "templates"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(chartDir, "Chart.yaml"),
		[]byte("apiVersion: v2\nname: lib-chart\nversion: 1.0.0\ntype: library\n"),
		0o600,
	))

	_, err := Infer(context.Background(), chartDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library chart")
}

func TestInfer_WithValues(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	result, err := Infer(context.Background(), chartDir, WithValues([]string{"replicaCount=3"}))
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestInfer_WithNoValidate(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	result, err := Infer(context.Background(), chartDir, WithNoValidate())
	require.NoError(t, err)
	assert.NotNil(t, result.Schema)
}

func TestInfer_WithSchemaOverrides(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	result, err := Infer(context.Background(), chartDir, WithSchemaOverrides(map[string]SchemaOverride{
		"replicaCount": {Type: "integer", Description: "number of replicas"},
	}))
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestInfer_WithInlineHelperExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	result, err := Infer(context.Background(), chartDir, WithInlineHelperExcludePatterns([]string{`^mychart\.`}))
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestInfer_SkipsUnparsableFile(t *testing.T) {
	dir := t.TempDir()
	chartDir := createTestChart(t, dir, "my-chart")

	require.NoError(t, os.WriteFile(
		filepath.Join(chartDir, "templates", "broken.yaml"),
		[]byte("{{ .Values.foo"),
		0o600,
	))

	result, err := Infer(context.Background(), chartDir)
	require.NoError(t, err)
	assert.NotNil(t, result)
}
