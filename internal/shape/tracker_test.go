package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/helmschema/internal/shape"
)

func TestTracker_TopLevelKey(t *testing.T) {
	tr := shape.New()
	tr.Ingest("replicas: ")

	assert.Equal(t, "replicas", tr.CurrentPath().String())
}

func TestTracker_NestedMapping(t *testing.T) {
	tr := shape.New()
	tr.Ingest("spec:\n  template:\n    image: ")

	assert.Equal(t, "spec.template.image", tr.CurrentPath().String())
}

func TestTracker_DedentPop(t *testing.T) {
	tr := shape.New()
	tr.Ingest("spec:\n  image: foo\nkind: ")

	assert.Equal(t, "kind", tr.CurrentPath().String())
}

func TestTracker_SequenceItem(t *testing.T) {
	tr := shape.New()
	tr.Ingest("containers:\n  - name: ")

	assert.Equal(t, "containers[*].name", tr.CurrentPath().String())
}

func TestTracker_SequenceItemScalarList(t *testing.T) {
	tr := shape.New()
	tr.Ingest("args:\n  - ")

	assert.Equal(t, "args[*]", tr.CurrentPath().String())
}

func TestTracker_MultipleSequenceItems(t *testing.T) {
	tr := shape.New()
	tr.Ingest("env:\n  - name: A\n    value: \"1\"\n  - name: ")

	assert.Equal(t, "env[*].name", tr.CurrentPath().String())
}

func TestTracker_DocumentSeparatorResets(t *testing.T) {
	tr := shape.New()
	tr.Ingest("spec:\n  image: foo\n---\nkind: ")

	assert.Equal(t, "kind", tr.CurrentPath().String())
}

func TestTracker_BlankLinesAndCommentsIgnored(t *testing.T) {
	tr := shape.New()
	tr.Ingest("spec:\n\n  # a comment\n  image: ")

	assert.Equal(t, "spec.image", tr.CurrentPath().String())
}

func TestTracker_FragmentConsumesKeyWithVirtualIndent(t *testing.T) {
	tr := shape.New()
	tr.Ingest("resources:\n")
	assert.Equal(t, "resources", tr.CurrentPath().String())

	tr.NoteFragmentConsumedKey(2)
	tr.Ingest("limits: ")

	assert.Equal(t, "limits", tr.CurrentPath().String())
}

func TestTracker_NullValuedKeyContributesNoFrame(t *testing.T) {
	tr := shape.New()
	tr.Ingest("foo:\nbar: ")

	assert.Equal(t, "bar", tr.CurrentPath().String())
}
