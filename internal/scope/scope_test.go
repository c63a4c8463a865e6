package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/scope"
)

func TestResolveSelector_AbsoluteValues(t *testing.T) {
	s := scope.New()

	p, ok := s.ResolveSelector(".Values.ingress.hostname")
	require.True(t, ok)
	assert.Equal(t, "ingress.hostname", string(p))
}

func TestResolveSelector_BuiltinRootUntracked(t *testing.T) {
	s := scope.New()

	_, ok := s.ResolveSelector(".Chart.Name")
	assert.False(t, ok)
}

func TestResolveSelector_RelativeInsideWith(t *testing.T) {
	s := scope.New()
	s.PushDot("ingress", true)

	p, ok := s.ResolveSelector(".hostname")
	require.True(t, ok)
	assert.Equal(t, "ingress.hostname", string(p))

	p, ok = s.ResolveSelector(".Values.replicaCount")
	require.True(t, ok)
	assert.Equal(t, "replicaCount", string(p), "absolute .Values reference ignores the current dot")

	s.PopDot()

	_, ok = s.ResolveSelector(".hostname")
	assert.False(t, ok, "relative selector is untracked once back at the root")
}

func TestResolveSelector_UntrackedDotPropagates(t *testing.T) {
	s := scope.New()
	s.PushDot("", false) // {{ with .Chart }}

	_, ok := s.ResolveSelector(".Name")
	assert.False(t, ok)
}

func TestResolveSelector_Variable(t *testing.T) {
	s := scope.New()
	s.Define("x", "ingress", true)

	p, ok := s.ResolveSelector("$x.hostname")
	require.True(t, ok)
	assert.Equal(t, "ingress.hostname", string(p))
}

func TestResolveSelector_VariableUnresolvedKey(t *testing.T) {
	s := scope.New()
	s.Define("k", "", false) // the key from a two-var range

	_, ok := s.ResolveSelector("$k")
	assert.False(t, ok)
}

func TestStack_VariableScopingPopped(t *testing.T) {
	s := scope.New()
	s.PushDot("ingress", true)
	s.Define("local", "ingress.x", true)
	s.PopDot()

	_, ok := s.ResolveSelector("$local")
	assert.False(t, ok)
}

func TestParseRangeHeader_OneVar(t *testing.T) {
	h := scope.ParseRangeHeader(".Values.list")
	assert.Equal(t, ".Values.list", h.Base)
	assert.Empty(t, h.ValueVar)
}

func TestParseRangeHeader_OneVarWithAssign(t *testing.T) {
	h := scope.ParseRangeHeader("$item := .Values.list")
	assert.Equal(t, "item", h.ValueVar)
	assert.Equal(t, ".Values.list", h.Base)
}

func TestParseRangeHeader_TwoVar(t *testing.T) {
	h := scope.ParseRangeHeader("$k, $v := .Values.env")
	assert.Equal(t, "k", h.KeyVar)
	assert.Equal(t, "v", h.ValueVar)
	assert.Equal(t, ".Values.env", h.Base)
}

func TestParseRangeHeader_LiteralList(t *testing.T) {
	h := scope.ParseRangeHeader(`$x := list "a" "b" "c"`)
	assert.True(t, h.IsLiteralList)
	assert.Equal(t, []string{"a", "b", "c"}, h.Literals)
	assert.Equal(t, "x", h.ValueVar)
}

func TestResolveDomain_LiteralListExpandsByCrossProduct(t *testing.T) {
	s := scope.New()
	s.DefineDomain("v", "", []string{"a", "b", "c"})

	paths, ok := s.ResolveDomain("$v.leaf")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a.leaf", "b.leaf", "c.leaf"}, pathStrings(paths))
}

func TestResolveDomain_GetPatternPrependsBase(t *testing.T) {
	s := scope.New()
	s.DefineDomain("k", "", []string{"one", "two"})

	ok := s.DefineDomainFrom("x", "extra", "k")
	require.True(t, ok)

	paths, ok := s.ResolveDomain("$x.leaf")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"extra.one.leaf", "extra.two.leaf"}, pathStrings(paths))
}

func TestResolveDomain_EqGuardExclusionAppliesToDerivedVariable(t *testing.T) {
	s := scope.New()
	s.DefineDomain("k", "", []string{"one", "two", "special"})
	require.True(t, s.DefineDomainFrom("x", "extra", "k"))

	mark := s.ExcludeMark()
	s.PushExclude("k", "special")

	paths, ok := s.ResolveDomain("$x.leaf")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"extra.one.leaf", "extra.two.leaf"}, pathStrings(paths))

	s.RestoreExclude(mark)

	paths, ok = s.ResolveDomain("$x.leaf")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"extra.one.leaf", "extra.two.leaf", "extra.special.leaf"}, pathStrings(paths))
}

func TestResolveDomain_NonDomainVariableFallsThrough(t *testing.T) {
	s := scope.New()
	s.Define("x", "ingress", true)

	_, ok := s.ResolveDomain("$x.hostname")
	assert.False(t, ok)
}

func pathStrings(paths []ir.ValuePath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}

	return out
}
