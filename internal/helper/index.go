// Package helper builds the Helper Index (§4.B): a lookup from a
// chart's named template bodies ({{define}}/{{block}}, most often
// collected in _helpers.tpl but legal in any template file) to their
// parsed body, so the interpreter can inline include/template calls
// without re-parsing on every reference.
package helper

import (
	"fmt"
	"sort"

	"github.com/hupe1980/helmschema/internal/tmplast"
)

// Entry is one indexed helper definition.
type Entry struct {
	// Name is the fully-qualified helper name, e.g. "mychart.labels".
	Name string
	// Path is the template file the definition was found in.
	Path string
	// Body is the helper's parsed content.
	Body []tmplast.Node
}

// Index maps helper name to its (first-seen) definition.
type Index struct {
	entries map[string]Entry
}

// NewIndex builds an Index from every file's parsed definitions.
// files must map a stable template path (e.g. "templates/_helpers.tpl",
// "charts/sub/templates/_helpers.tpl") to its already-parsed
// definitions, as produced by tmplast.Parse for that file.
//
// A name defined more than once keeps its first occurrence (in
// iteration order over the files slice) and is otherwise left intact:
// Helm itself would refuse to render on such a collision, but a static
// analyzer has no render step to fail, so it degrades gracefully
// instead of aborting the whole chart.
func NewIndex(files []ParsedFile) *Index {
	idx := &Index{entries: make(map[string]Entry)}

	for _, f := range files {
		for _, def := range f.Definitions {
			if _, exists := idx.entries[def.Name]; exists {
				continue
			}

			idx.entries[def.Name] = Entry{Name: def.Name, Path: f.Path, Body: def.Body}
		}
	}

	return idx
}

// ParsedFile pairs a template file's path with the helper definitions
// tmplast.Parse extracted from it.
type ParsedFile struct {
	Path        string
	Definitions []tmplast.Definition
}

// Lookup returns the named helper's body, if indexed.
func (idx *Index) Lookup(name string) ([]tmplast.Node, bool) {
	e, ok := idx.entries[name]
	return e.Body, ok
}

// Has reports whether name is indexed.
func (idx *Index) Has(name string) bool {
	_, ok := idx.entries[name]
	return ok
}

// Names returns every indexed helper name, sorted, for deterministic
// iteration (diagnostics, tests).
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.entries))
	for n := range idx.entries {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Len reports the number of indexed helpers.
func (idx *Index) Len() int { return len(idx.entries) }

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.Path)
}
