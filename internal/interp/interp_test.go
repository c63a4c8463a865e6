package interp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/helmschema/internal/helper"
	"github.com/hupe1980/helmschema/internal/interp"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/resource"
	"github.com/hupe1980/helmschema/internal/tmplast"
)

func run(t *testing.T, src string, idx *helper.Index) []ir.ValueUse {
	t.Helper()

	doc, _, err := tmplast.Parse("test.yaml", src, tmplast.FuncMap())
	require.NoError(t, err)

	if idx == nil {
		idx = helper.NewIndex(nil)
	}

	it := interp.New(idx, nil)

	return it.Run(doc, resource.Detect(src))
}

func TestInterp_SimpleScalar(t *testing.T) {
	uses := run(t, "replicas: {{ .Values.replicaCount }}\n", nil)

	require.Len(t, uses, 1)
	assert.Equal(t, ir.ValuePath("replicaCount"), uses[0].SourceExpr)
	assert.Equal(t, "replicas", uses[0].Path.String())
	assert.Equal(t, ir.Scalar, uses[0].Kind)
	assert.Empty(t, uses[0].Guards)
}

func TestInterp_GuardedScalar(t *testing.T) {
	src := `{{- if .Values.ingress.enabled }}
host: {{ .Values.ingress.host }}
{{- end }}`

	uses := run(t, src, nil)
	require.Len(t, uses, 2)

	var hostUse, enabledUse ir.ValueUse

	for _, u := range uses {
		switch u.SourceExpr {
		case "ingress.host":
			hostUse = u
		case "ingress.enabled":
			enabledUse = u
		}
	}

	require.NotEmpty(t, hostUse.SourceExpr)
	require.Len(t, hostUse.Guards, 1)
	assert.Equal(t, ir.Truthy("ingress.enabled"), hostUse.Guards[0])

	require.NotEmpty(t, enabledUse.SourceExpr)
	assert.Empty(t, enabledUse.Path)
	assert.Equal(t, ir.Scalar, enabledUse.Kind)
	assert.Empty(t, enabledUse.Guards)
}

func TestInterp_ElseBranchGetsNegatedGuard(t *testing.T) {
	src := `{{- if .Values.ingress.enabled }}
a: {{ .Values.a }}
{{- else }}
b: {{ .Values.b }}
{{- end }}`

	uses := run(t, src, nil)

	var bUse ir.ValueUse

	for _, u := range uses {
		if u.SourceExpr == "b" {
			bUse = u
		}
	}

	require.Len(t, bUse.Guards, 1)
	assert.Equal(t, ir.Not("ingress.enabled"), bUse.Guards[0])
}

func TestInterp_RangeOneVar(t *testing.T) {
	src := `{{- range .Values.args }}
- {{ . }}
{{- end }}`

	uses := run(t, src, nil)
	require.Len(t, uses, 2)

	var itemUse, baseUse ir.ValueUse

	for _, u := range uses {
		switch u.SourceExpr {
		case "args.*":
			itemUse = u
		case "args":
			baseUse = u
		}
	}

	require.NotEmpty(t, itemUse.SourceExpr)
	assert.Equal(t, "args[*]", itemUse.Path.String())
	require.Len(t, itemUse.Guards, 1)
	assert.Equal(t, ir.Truthy("args"), itemUse.Guards[0])

	require.NotEmpty(t, baseUse.SourceExpr)
	assert.Empty(t, baseUse.Path)
	assert.Empty(t, baseUse.Guards)
}

func TestInterp_RangeTwoVar(t *testing.T) {
	src := `{{- range $k, $v := .Values.env }}
- name: {{ $k }}
  value: {{ $v }}
{{- end }}`

	uses := run(t, src, nil)

	var valueUse ir.ValueUse

	for _, u := range uses {
		if u.Path.String() == "env[*].value" {
			valueUse = u
		}
	}

	require.NotEmpty(t, valueUse.SourceExpr)
	assert.Equal(t, ir.ValuePath("env.*"), valueUse.SourceExpr)
	require.Len(t, valueUse.Guards, 1)
	assert.Equal(t, ir.Truthy("env"), valueUse.Guards[0])

	var baseUse ir.ValueUse

	for _, u := range uses {
		if u.SourceExpr == "env" {
			baseUse = u
		}
	}

	require.NotEmpty(t, baseUse.SourceExpr)
	assert.Empty(t, baseUse.Path)
	assert.Empty(t, baseUse.Guards)
}

func TestInterp_WithRebindsRelativeSelectors(t *testing.T) {
	src := `{{- with .Values.ingress }}
host: {{ .host }}
{{- end }}`

	uses := run(t, src, nil)
	require.Len(t, uses, 2)

	var hostUse, ingressUse ir.ValueUse

	for _, u := range uses {
		switch {
		case u.Path.String() == "host":
			hostUse = u
		case u.SourceExpr == "ingress":
			ingressUse = u
		}
	}

	assert.Equal(t, ir.ValuePath("ingress.host"), hostUse.SourceExpr)
	require.Len(t, hostUse.Guards, 1)
	assert.Equal(t, ir.Truthy("ingress"), hostUse.Guards[0])

	require.NotEmpty(t, ingressUse.SourceExpr)
	assert.Empty(t, ingressUse.Path)
	assert.Empty(t, ingressUse.Guards)
}

func TestInterp_Fragment(t *testing.T) {
	src := "resources:\n{{ toYaml .Values.resources | nindent 2 }}\n"

	uses := run(t, src, nil)
	require.Len(t, uses, 1)
	assert.Equal(t, ir.Fragment, uses[0].Kind)
	assert.Equal(t, "resources", uses[0].Path.String())
}

func TestInterp_IndexCall(t *testing.T) {
	src := `tag: {{ index .Values "image" "tag" }}`

	uses := run(t, src, nil)
	require.Len(t, uses, 1)
	assert.Equal(t, ir.ValuePath("image.tag"), uses[0].SourceExpr)
}

func TestInterp_IncludeInlinesHelperBody(t *testing.T) {
	helperSrc := `{{- define "mychart.labels" -}}
app: {{ .Chart.Name }}
release: {{ .Release.Name }}
tier: {{ .Values.tier }}
{{- end -}}`

	_, defs, err := tmplast.Parse("_helpers.tpl", helperSrc, tmplast.FuncMap())
	require.NoError(t, err)

	idx := helper.NewIndex([]helper.ParsedFile{{Path: "_helpers.tpl", Definitions: defs}})

	src := `labels:
{{ include "mychart.labels" . | nindent 2 }}`

	uses := run(t, src, idx)

	var tierUse ir.ValueUse

	for _, u := range uses {
		if u.SourceExpr == "tier" {
			tierUse = u
		}
	}

	require.NotEmpty(t, tierUse.SourceExpr)
	assert.Equal(t, "labels", tierUse.Path.String())
}

func TestInterp_IncludeCachedAcrossCallSites(t *testing.T) {
	helperSrc := `{{- define "mychart.labels" -}}
tier: {{ .Values.tier }}
{{- end -}}`

	_, defs, err := tmplast.Parse("_helpers.tpl", helperSrc, tmplast.FuncMap())
	require.NoError(t, err)

	idx := helper.NewIndex([]helper.ParsedFile{{Path: "_helpers.tpl", Definitions: defs}})

	src := `a:
{{ include "mychart.labels" . | nindent 2 }}
b:
{{ include "mychart.labels" . | nindent 2 }}`

	uses := run(t, src, idx)

	var paths []string
	for _, u := range uses {
		if u.SourceExpr == "tier" {
			paths = append(paths, u.Path.String())
		}
	}

	assert.ElementsMatch(t, []string{"a.tier", "b.tier"}, paths)
}

func TestInterp_LiteralListRangeExpandsByCrossProduct(t *testing.T) {
	src := `{{- range $v := list "a" "b" "c" }}
- {{ $v.leaf }}
{{- end }}`

	uses := run(t, src, nil)

	var paths []string
	for _, u := range uses {
		paths = append(paths, string(u.SourceExpr))
	}

	assert.ElementsMatch(t, []string{"a.leaf", "b.leaf", "c.leaf"}, paths)
}

func TestInterp_GetPatternExpandsWithBasePrefix(t *testing.T) {
	src := `{{- range $k := list "one" "two" }}
{{- $x := get .Values.extra $k }}
- {{ $x.leaf }}
{{- end }}`

	uses := run(t, src, nil)

	var paths []string
	for _, u := range uses {
		paths = append(paths, string(u.SourceExpr))
	}

	// The "$x := get .Values.extra $k" assignment itself also records
	// the untyped base dependency ("extra.*"); the get-pattern
	// expansion additionally yields one path per literal in $k's domain.
	assert.Contains(t, paths, "extra.one.leaf")
	assert.Contains(t, paths, "extra.two.leaf")
}

func TestInterp_EqGuardExcludesLiteralInNegationBranch(t *testing.T) {
	src := `{{- range $k := list "one" "special" }}
{{- $x := get .Values.extra $k }}
{{- if eq $k "special" }}
skip: true
{{- else }}
- {{ $x.leaf }}
{{- end }}
{{- end }}`

	uses := run(t, src, nil)

	var paths []string
	for _, u := range uses {
		if u.SourceExpr != "" {
			paths = append(paths, string(u.SourceExpr))
		}
	}

	assert.Contains(t, paths, "extra.one.leaf")
	assert.NotContains(t, paths, "extra.special.leaf")
}

func TestInterp_CyclicHelperDoesNotHang(t *testing.T) {
	helperSrc := `{{- define "a" -}}{{ include "a" . }}{{- end -}}`

	_, defs, err := tmplast.Parse("_helpers.tpl", helperSrc, tmplast.FuncMap())
	require.NoError(t, err)

	idx := helper.NewIndex([]helper.ParsedFile{{Path: "_helpers.tpl", Definitions: defs}})

	assert.NotPanics(t, func() {
		run(t, `x: {{ include "a" . }}`, idx)
	})
}
