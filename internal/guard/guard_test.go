package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/helmschema/internal/guard"
	"github.com/hupe1980/helmschema/internal/ir"
)

func identity(s string) ir.ValuePath { return ir.ValuePath(s) }

func TestDecomposeIf_Bare(t *testing.T) {
	gs := guard.DecomposeIf(".Values.ingress.enabled", identity)
	assert.Equal(t, []ir.Guard{ir.Truthy(".Values.ingress.enabled")}, gs)
}

func TestDecomposeIf_Not(t *testing.T) {
	gs := guard.DecomposeIf("not .Values.disabled", identity)
	assert.Equal(t, []ir.Guard{ir.Not(".Values.disabled")}, gs)
}

func TestDecomposeIf_Eq(t *testing.T) {
	gs := guard.DecomposeIf(`eq .Values.mode "prod"`, identity)
	assert.Equal(t, []ir.Guard{ir.Eq(".Values.mode", "prod")}, gs)
}

func TestDecomposeIf_Or(t *testing.T) {
	gs := guard.DecomposeIf(".Values.a .Values.b", identity)
	// two bare selectors with no keyword is not an "or" call; this
	// documents that "or" must be an explicit function call.
	assert.NotEqual(t, []ir.Guard{ir.OrGuard(".Values.a", ".Values.b")}, gs)

	gs = guard.DecomposeIf("or .Values.a .Values.b", identity)
	assert.Equal(t, []ir.Guard{ir.OrGuard(".Values.a", ".Values.b")}, gs)
}

func TestDecomposeIf_And(t *testing.T) {
	gs := guard.DecomposeIf("and .Values.a .Values.b .Values.c", identity)
	assert.Equal(t, []ir.Guard{
		ir.Truthy(".Values.a"),
		ir.Truthy(".Values.b"),
		ir.Truthy(".Values.c"),
	}, gs)
}

func TestDecomposeIf_Unrecognized_FallsBackToTruthy(t *testing.T) {
	gs := guard.DecomposeIf("semverCompare \">=1.19\" .Capabilities.KubeVersion.Version", identity)
	assert.NotEmpty(t, gs)

	for _, g := range gs {
		assert.Equal(t, ir.GuardTruthy, g.Kind)
	}
}

func TestStack_PushSnapshotRestore(t *testing.T) {
	s := guard.New()
	assert.Empty(t, s.Snapshot())

	mark := s.Mark()
	s.Push(ir.Truthy(".Values.a"))
	s.PushAll([]ir.Guard{ir.Not(".Values.b")})

	snap := s.Snapshot()
	assert.Len(t, snap, 2)

	s.Restore(mark)
	assert.Empty(t, s.Snapshot())
}
