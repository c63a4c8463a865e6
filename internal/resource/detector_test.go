package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/helmschema/internal/resource"
)

func TestDetect_SingleDocument(t *testing.T) {
	src := `apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .Release.Name }}
spec:
  replicas: {{ .Values.replicaCount }}
`

	got := resource.Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "apps/v1", got[0].APIVersion)
	assert.Equal(t, "Deployment", got[0].Kind)
	assert.Empty(t, got[0].Alternates)
}

func TestDetect_MultiDocument(t *testing.T) {
	src := `apiVersion: v1
kind: ConfigMap
metadata:
  name: cfg
---
apiVersion: v1
kind: Service
metadata:
  name: svc
`

	got := resource.Detect(src)
	require.Len(t, got, 2)
	assert.Equal(t, "ConfigMap", got[0].Kind)
	assert.Equal(t, "Service", got[1].Kind)
}

func TestDetect_SingleBetaVersionKept(t *testing.T) {
	src := `apiVersion: policy/v1beta1
kind: PodDisruptionBudget
`

	got := resource.Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "policy/v1beta1", got[0].APIVersion)
}

func TestDetect_PrefersStableOverUnrecognizedFormat(t *testing.T) {
	src := `{{- if .Capabilities.APIVersions.Has "v2" }}
apiVersion: v2
{{- else }}
apiVersion: legacy
{{- end }}
kind: Widget
`

	got := resource.Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].APIVersion, "a stable v<digits> candidate outranks an unrecognized-format one")
	assert.Equal(t, []string{"legacy"}, got[0].Alternates)
}

func TestDetect_TracksAlternatesAcrossGuardedBranches(t *testing.T) {
	src := `{{- if .Capabilities.APIVersions.Has "policy/v1" }}
apiVersion: policy/v1
{{- else }}
apiVersion: policy/v1beta1
{{- end }}
kind: PodDisruptionBudget
`

	got := resource.Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "policy/v1", got[0].APIVersion)
	assert.Equal(t, []string{"policy/v1beta1"}, got[0].Alternates)
}

func TestDetect_NoHeaderFound(t *testing.T) {
	src := "# just a comment\nfoo: bar\n"

	got := resource.Detect(src)
	require.Len(t, got, 1)
	assert.True(t, got[0].Empty())
}

func TestDetect_EmptyInput(t *testing.T) {
	got := resource.Detect("")
	require.Len(t, got, 1)
	assert.True(t, got[0].Empty())
}
