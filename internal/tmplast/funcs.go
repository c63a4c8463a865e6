package tmplast

import (
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// FuncMap returns the set of function names the parser must accept as
// defined so text/template/parse does not fail charts that use sprig
// or Helm's built-in pipeline helpers with "function X not defined".
// helmschema never calls these functions — it only needs their names
// to exist for parsing, the same requirement Helm itself satisfies via
// its own engine.FuncMap (sprig.TxtFuncMap plus a handful of
// chart-rendering extras: toToml/toYaml/fromYaml/toJson/fromJson,
// include/required/tpl).
func FuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()

	// Helm disables these two sprig functions at render time; keep
	// them absent here too so chart templates parse identically
	// whether or not they happen to be reached.
	delete(fm, "env")
	delete(fm, "expandenv")

	noop := func(...any) (any, error) { return nil, nil }
	noopStr := func(...any) (string, error) { return "", nil }

	fm["toToml"] = noopStr
	fm["toYaml"] = noopStr
	fm["fromYaml"] = noop
	fm["fromYamlArray"] = noop
	fm["toJson"] = noopStr
	fm["fromJson"] = noop
	fm["fromJsonArray"] = noop
	fm["include"] = noopStr
	fm["required"] = noop
	fm["tpl"] = noopStr
	fm["lookup"] = noop

	return fm
}
