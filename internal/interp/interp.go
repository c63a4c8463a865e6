// Package interp implements the Interpreter (§4.G): it walks a parsed
// template document, threading the Shape Tracker, Guard Stack, and
// Scope & Binding Stack through every node, and emits the ir.ValueUse
// tuples that are the whole system's output. It never executes the
// template; "interpreting" here means static traversal only.
package interp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/helmschema/internal/config"
	"github.com/hupe1980/helmschema/internal/guard"
	"github.com/hupe1980/helmschema/internal/helper"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/scope"
	"github.com/hupe1980/helmschema/internal/shape"
	"github.com/hupe1980/helmschema/internal/tmplast"
)

// fragmentMarkers are the functions whose presence anywhere in an
// expression's top-level pipeline make it a Fragment rather than a
// Scalar (§4.G): the rendered output is a YAML block, not a single
// value.
var fragmentMarkers = []string{
	"toYaml", "fromYaml", "fromYamlArray", "toJson", "fromJson", "fromJsonArray",
	"tpl", "nindent", "indent", "include", "template",
}

var (
	includeRe  = regexp.MustCompile(`\b(include|template)\s+"([^"]+)"\s+(\S+)`)
	indexRe    = regexp.MustCompile(`\bindex\s+(\.[\w.]*|\$[\w.]*)((?:\s+"[^"]*")+)`)
	getRe      = regexp.MustCompile(`\bget\s+(\.[\w.]*|\$[\w.]*)\s+(\$[\w.]*)`)
	selectRe   = regexp.MustCompile(`\.[A-Za-z_][\w.]*|\$[A-Za-z_][\w.]*`)
	nindentRe  = regexp.MustCompile(`\b(?:nindent|indent)\s+(\d+)\b`)
	stringLit  = regexp.MustCompile(`"([^"]*)"`)
	varDefRe   = regexp.MustCompile(`^\$(\w+)\s*:?=\s*(.+)$`)
	eqVarLitRe = regexp.MustCompile(`^eq\s+\$(\w+)\s+"([^"]*)"$`)
)

// Interp interprets one or more template documents sharing a Helper
// Index and extensibility configuration.
type Interp struct {
	Helpers *helper.Index
	Config  *config.ExtensibilityConfig
}

// New returns an Interp. cfg may be nil, meaning no inline-helper
// exclude patterns or file-inliner conventions are configured; the
// built-in "*.defaultValues" exclusion applies either way.
func New(helpers *helper.Index, cfg *config.ExtensibilityConfig) *Interp {
	return &Interp{Helpers: helpers, Config: cfg}
}

// run is per-document interpretation state.
type run struct {
	interp      *Interp
	shape       *shape.Tracker
	guards      *guard.Stack
	scope       *scope.Stack
	resources   []ir.Resource
	docIndex    int
	uses        []ir.ValueUse
	inlining    map[string]bool // helper names currently being inlined, cycle guard
	defineCache map[string][]ir.ValueUse
}

// Run interprets doc's own body (excluding helper definitions), and
// returns every value use discovered, sorted and deduplicated.
// resources supplies one ir.Resource per "---"-separated document
// within the file, in order, as produced by internal/resource.Detect
// on the same raw text.
func (i *Interp) Run(doc *tmplast.Document, resources []ir.Resource) []ir.ValueUse {
	r := &run{
		interp:    i,
		shape:     shape.New(),
		guards:    guard.New(),
		scope:     scope.New(),
		resources:   resources,
		inlining:    map[string]bool{},
		defineCache: map[string][]ir.ValueUse{},
	}

	r.walkList(doc.Nodes)
	r.shape.Flush()

	return ir.SortAndDedup(r.uses)
}

func (r *run) currentResource() ir.Resource {
	if r.docIndex >= 0 && r.docIndex < len(r.resources) {
		return r.resources[r.docIndex]
	}

	return ir.Resource{}
}

func (r *run) walkList(nodes []tmplast.Node) {
	for _, n := range nodes {
		r.walkNode(n)
	}
}

func (r *run) walkNode(n tmplast.Node) {
	switch n.Kind {
	case tmplast.KindText:
		r.ingestText(n.Text)

	case tmplast.KindComment:
		// Comments carry no structure and no values; the shape tracker
		// already treats comment lines as transparent when ingested as
		// literal text, so nothing to do beyond that.
		r.ingestText("")

	case tmplast.KindExpression:
		r.walkExpression(n)

	case tmplast.KindIf:
		r.walkIf(n)

	case tmplast.KindRange:
		r.walkRange(n)

	case tmplast.KindWith:
		r.walkWith(n)
	}
}

// ingestText feeds literal text into the shape tracker and advances
// the document index across "---"/"..." separators, keeping the
// resource-per-document mapping aligned with the Shape Tracker's own
// document resets.
func (r *run) ingestText(text string) {
	for _, line := range strings.Split(text, "\n") {
		if isSeparatorLine(strings.TrimSpace(line)) {
			r.docIndex++
		}
	}

	r.shape.Ingest(text)
}

func isSeparatorLine(trimmed string) bool {
	return trimmed == "---" || trimmed == "..."
}

func (r *run) walkExpression(n tmplast.Node) {
	path := r.shape.CurrentPath()
	kind := classify(n.Source)

	if handled := r.tryInline(n.Source, path, kind); handled {
		return
	}

	r.emitSelectors(n.Source, path, kind)
	r.tryBindVariable(n.Source)

	if kind == ir.Fragment {
		r.shape.NoteFragmentConsumedKey(virtualIndent(n.Source))
	}
}

// tryBindVariable recognizes "$x := rhs" / "$x = rhs" variable
// definitions and records the variable's resolved path when rhs is
// simple enough to classify statically: a bare selector, or a
// get/index call. Anything more complex (a pipeline with further
// filters, a function call result) is recorded as bound-but-untracked,
// which is still correct: the interpreter just won't follow it further.
func (r *run) tryBindVariable(source string) {
	m := varDefRe.FindStringSubmatch(source)
	if m == nil {
		return
	}

	name, rhs := m[1], strings.TrimSpace(m[2])

	if p, ok := r.scope.ResolveSelector(rhs); ok && !strings.ContainsAny(rhs, "|") {
		r.scope.Define(name, p, true)
		return
	}

	if gm := getRe.FindStringSubmatch(rhs); gm != nil {
		if base, ok := r.scope.ResolveSelector(gm[1]); ok {
			// "get pattern" (§4.F): when the selector key has a known
			// literal domain, the get-bound variable expands to one
			// path per literal (base.<literal>) rather than a single
			// wildcard path.
			if r.scope.DefineDomainFrom(name, base, strings.TrimPrefix(gm[2], "$")) {
				return
			}

			r.scope.Define(name, base.Join("*"), true)
			return
		}
	}

	if im := indexRe.FindStringSubmatch(rhs); im != nil {
		if base, ok := r.scope.ResolveSelector(im[1]); ok {
			for _, lm := range stringLit.FindAllStringSubmatch(im[2], -1) {
				base = base.Join(lm[1])
			}

			r.scope.Define(name, base, true)
			return
		}
	}

	r.scope.Define(name, "", false)
}

func classify(source string) ir.ValueKind {
	for _, m := range fragmentMarkers {
		if hasWord(source, m) {
			return ir.Fragment
		}
	}

	return ir.Scalar
}

func virtualIndent(source string) int {
	m := nindentRe.FindStringSubmatch(source)
	if m == nil {
		return 0
	}

	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}

	return n
}

func hasWord(s, word string) bool {
	idx := 0

	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}

		start := idx + i
		end := start + len(word)

		before := start == 0 || !isIdentByte(s[start-1])
		after := end == len(s) || !isIdentByte(s[end])

		if before && after {
			return true
		}

		idx = start + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// tryInline recognizes an include/template call and, when the named
// helper is indexed and not excluded by config, walks its body in
// place with the call's context as the new dot. It returns false when
// the expression isn't an include/template call, letting the caller
// fall back to ordinary selector scanning.
func (r *run) tryInline(source string, path ir.YAMLPath, kind ir.ValueKind) bool {
	m := includeRe.FindStringSubmatch(source)
	if m == nil {
		return false
	}

	name, ctxExpr := m[2], m[3]

	var inlineCfg config.InlineHelperConfig
	if r.interp.Config != nil {
		inlineCfg = r.interp.Config.InlineHelpers
	}

	if inlineCfg.ExcludesHelper(name) {
		return true
	}

	if r.inlining[name] || r.scope.AtMaxDepth() {
		return true
	}

	body, ok := r.interp.Helpers.Lookup(name)
	if !ok {
		return true
	}

	ctxPath, ctxOK := r.scope.ResolveSelector(ctxExpr)

	cacheKey := r.defineCacheKey(name, ctxPath, ctxOK)

	if cached, hit := r.defineCache[cacheKey]; hit {
		for _, u := range cached {
			u.Path = prependPath(path, u.Path)
			r.uses = append(r.uses, u)
		}

		_ = kind

		return true
	}

	r.inlining[name] = true
	r.scope.PushDot(ctxPath, ctxOK)

	savedShape := r.shape
	r.shape = shape.New() // a helper body is its own literal-text region, addressed relative to the call site's path

	before := len(r.uses)

	r.walkList(body)
	r.shape.Flush()

	relative := make([]ir.ValueUse, len(r.uses)-before)
	copy(relative, r.uses[before:])
	r.defineCache[cacheKey] = relative

	for i := before; i < len(r.uses); i++ {
		r.uses[i].Path = prependPath(path, r.uses[i].Path)
	}

	r.shape = savedShape

	r.scope.PopDot()
	delete(r.inlining, name)

	_ = kind // the helper body's own expressions classify themselves independently

	return true
}

// defineCacheKey identifies a memoizable helper call site: the helper
// name, the resolved calling context, and the guards active at the call
// site (since a cached use's Guards are baked in at emit time).
func (r *run) defineCacheKey(name string, ctxPath ir.ValuePath, ctxOK bool) string {
	var b strings.Builder

	b.WriteString(name)
	b.WriteByte('\x00')
	b.WriteString(string(ctxPath))
	b.WriteByte('\x00')

	if ctxOK {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}

	for _, g := range r.guards.Snapshot() {
		b.WriteByte('\x00')
		b.WriteString(g.String())
	}

	return b.String()
}

func prependPath(base, rest ir.YAMLPath) ir.YAMLPath {
	out := make(ir.YAMLPath, 0, len(base)+len(rest))
	out = append(out, base...)
	out = append(out, rest...)

	return out
}

func (r *run) emitSelectors(source string, path ir.YAMLPath, kind ir.ValueKind) {
	consumed := make([][2]int, 0, 4)

	for _, m := range indexRe.FindAllStringSubmatchIndex(source, -1) {
		base := source[m[2]:m[3]]
		litSpan := source[m[4]:m[5]]

		p, ok := r.scope.ResolveSelector(base)
		if !ok {
			consumed = append(consumed, [2]int{m[0], m[1]})
			continue
		}

		for _, lm := range stringLit.FindAllStringSubmatch(litSpan, -1) {
			p = p.Join(lm[1])
		}

		r.emit(p, path, kind)
		consumed = append(consumed, [2]int{m[0], m[1]})
	}

	for _, m := range getRe.FindAllStringSubmatchIndex(source, -1) {
		base := source[m[2]:m[3]]

		if p, ok := r.scope.ResolveSelector(base); ok {
			r.emit(p.Join("*"), path, kind)
		}

		consumed = append(consumed, [2]int{m[0], m[1]})
	}

	for _, m := range includeRe.FindAllStringSubmatchIndex(source, -1) {
		consumed = append(consumed, [2]int{m[0], m[1]})
	}

	for _, m := range selectRe.FindAllStringIndex(source, -1) {
		if within(m, consumed) {
			continue
		}

		tok := source[m[0]:m[1]]

		if paths, ok := r.scope.ResolveDomain(tok); ok {
			for _, p := range paths {
				r.emit(p, path, kind)
			}

			continue
		}

		if p, ok := r.scope.ResolveSelector(tok); ok && p != "" {
			r.emit(p, path, kind)
		}
	}
}

func within(span [2]int, ranges [][2]int) bool {
	for _, r := range ranges {
		if span[0] >= r[0] && span[1] <= r[1] {
			return true
		}
	}

	return false
}

func (r *run) emit(p ir.ValuePath, path ir.YAMLPath, kind ir.ValueKind) {
	if p == "" {
		return
	}

	r.uses = append(r.uses, ir.ValueUse{
		SourceExpr: p,
		Path:       path,
		Kind:       kind,
		Guards:     r.guards.Snapshot(),
		Resource:   r.currentResource(),
	})
}

func (r *run) walkIf(n tmplast.Node) {
	gs := guard.DecomposeIf(n.Source, r.pathOf)
	r.emitGuardDeps(gs)

	mark := r.guards.Mark()
	r.guards.PushAll(gs)
	r.walkList(n.Then)
	r.guards.Restore(mark)

	if len(n.Else) > 0 {
		mark = r.guards.Mark()
		exMark := r.scope.ExcludeMark()

		if neg, ok := negateAll(gs); ok {
			r.guards.PushAll(neg)
		}

		// "get pattern" exclusion (§4.F): "eq $k "literal"" excludes
		// that literal from $k's (or a get-bound variable keyed by
		// $k's domain) expansion inside the negation branch.
		if varName, lit, ok := eqVarLiteral(n.Source); ok {
			r.scope.PushExclude(varName, lit)
		}

		r.walkList(n.Else)
		r.guards.Restore(mark)
		r.scope.RestoreExclude(exMark)
	}
}

// eqVarLiteral recognizes an `eq $var "literal"` if-header, used to
// exclude a literal from a domain-bearing variable's expansion inside
// the branch where the equality does not hold.
func eqVarLiteral(source string) (varName, literal string, ok bool) {
	m := eqVarLitRe.FindStringSubmatch(strings.TrimSpace(source))
	if m == nil {
		return "", "", false
	}

	return m[1], m[2], true
}

// emitGuardDeps records a guard's own dependency on the values it
// references (§4.G: "emit one use per referenced value path in cond
// with the empty YAML path"), so a flag that's only ever read as a
// bare condition still surfaces as a schema property.
func (r *run) emitGuardDeps(gs []ir.Guard) {
	for _, g := range gs {
		for _, p := range g.ReferencedPaths() {
			r.emit(p, nil, ir.Scalar)
		}
	}
}

func negateAll(gs []ir.Guard) ([]ir.Guard, bool) {
	out := make([]ir.Guard, 0, len(gs))

	for _, g := range gs {
		neg, ok := g.Negate()
		if !ok {
			return nil, false
		}

		out = append(out, neg)
	}

	return out, true
}

func (r *run) pathOf(selector string) ir.ValuePath {
	p, _ := r.scope.ResolveSelector(selector)
	return p
}

func (r *run) walkWith(n tmplast.Node) {
	p, ok := r.scope.ResolveSelector(strings.TrimSpace(n.Source))
	mark := r.guards.Mark()

	if ok && p != "" {
		r.emit(p, nil, ir.Scalar)
		r.guards.Push(ir.Truthy(p))
	}

	r.scope.PushDot(p, ok)
	r.walkList(n.Then)
	r.scope.PopDot()
	r.guards.Restore(mark)

	if len(n.Else) > 0 {
		r.walkList(n.Else)
	}
}

func (r *run) walkRange(n tmplast.Node) {
	h := scope.ParseRangeHeader(n.Source)

	if h.IsLiteralList {
		r.scope.PushDot("", false)

		if h.ValueVar != "" {
			// Literal-list form (§4.F form 3): the variable's domain is
			// the set of literals; references to it expand by
			// cross-product at emission time rather than resolving to
			// a single path.
			r.scope.DefineDomain(h.ValueVar, "", h.Literals)
		}

		r.walkList(n.Then)
		r.scope.PopDot()

		return
	}

	basePath, baseOK := r.scope.ResolveSelector(strings.TrimSpace(h.Base))

	var elemPath ir.ValuePath

	elemOK := baseOK

	if baseOK {
		elemPath = ir.ValuePath(fmt.Sprintf("%s.*", basePath))
		if basePath == "" {
			elemPath = "*"
		}
	}

	mark := r.guards.Mark()

	if baseOK && basePath != "" {
		r.emit(basePath, nil, ir.Scalar)
		r.guards.Push(ir.Truthy(basePath))
	}

	r.scope.PushDot(elemPath, elemOK)

	if h.ValueVar != "" {
		r.scope.Define(h.ValueVar, elemPath, elemOK)
	}

	if h.KeyVar != "" {
		r.scope.Define(h.KeyVar, "", false)
	}

	r.walkList(n.Then)
	r.scope.PopDot()
	r.guards.Restore(mark)

	if len(n.Else) > 0 {
		r.walkList(n.Else)
	}
}
