package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInferTestChart(t *testing.T, dir, name string) string {
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

func TestInferChart_ComposesSchema(t *testing.T) {
	dir := t.TempDir()
	chartDir := createInferTestChart(t, dir, "my-chart")

	doc, err := inferChart(context.Background(), chartDir, &inferOptions{})
	require.NoError(t, err)

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "replicaCount")
	assert.Contains(t, props, "image")
}

func TestInferChart_InvalidChartDir(t *testing.T) {
	_, err := inferChart(context.Background(), "/nonexistent/chart/dir/12345", &inferOptions{})
	require.Error(t, err)
}

func TestRunInfer_WritesToOutputFile(t *testing.T) {
	dir := t.TempDir()
	chartDir := createInferTestChart(t, dir, "my-chart")
	outPath := filepath.Join(dir, "schema.yaml")

	_, _, err := executeCommand("infer", chartDir, "--output", outPath)
	require.NoError(t, err)

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "replicaCount")
}

func TestRunInfer_PrintsToStdout(t *testing.T) {
	dir := t.TempDir()
	chartDir := createInferTestChart(t, dir, "my-chart")

	stdout, _, err := executeCommand("infer", chartDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "replicaCount")
}

func TestRunInfer_BadChartDir(t *testing.T) {
	_, _, err := executeCommand("infer", "/nonexistent/chart/dir/12345")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestCollectValueUses_SkipsUnparsableFile(t *testing.T) {
	dir := t.TempDir()
	chartDir := createInferTestChart(t, dir, "my-chart")

	require.NoError(t, os.WriteFile(
		filepath.Join(chartDir, "templates", "broken.yaml"),
		[]byte("{{ .Values.foo"),
		0o600,
	))

	doc, err := inferChart(context.Background(), chartDir, &inferOptions{})
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestLoadExtensibilityConfig_NoConfigFile(t *testing.T) {
	cfg, err := loadExtensibilityConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
