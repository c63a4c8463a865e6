// Package scope implements the Scope & Binding Stack (§4.F): the dot
// stack (what "." currently refers to under nested with/range), the
// variable bindings $x := ... introduces, and range-header parsing.
package scope

import (
	"strings"

	"github.com/hupe1980/helmschema/internal/ir"
)

// DefaultMaxDepth bounds how deeply with/range/helper-call nesting is
// followed, guarding against pathological or accidentally-cyclic
// charts rather than any expected real-world depth.
const DefaultMaxDepth = 64

// binding is a variable's or dot frame's statically-known value. ok is
// false when it isn't a tracked Values-rooted path: a map key from a
// two-var range, a literal, a built-in object (.Chart, .Release, ...),
// or the result of a helper call.
type binding struct {
	path   ir.ValuePath
	ok     bool
	domain []string // non-nil: a literal-list/get-pattern variable (§4.F); expands by cross-product instead of resolving to a single path
	// domainOwner names the variable an eq-guard exclusion (§4.F "get
	// pattern") must target: the literal-list variable itself for a
	// direct binding, or the source variable a get-bound variable
	// inherited its domain from, so "if eq $k ..." excludes the
	// literal from both $k and anything get-bound off $k.
	domainOwner string
}

type varScope struct {
	vars map[string]binding
}

// Stack is the live binding state while walking one document.
type Stack struct {
	dotStack []binding
	scopes   []*varScope
	maxDepth int
	exclude  []string // "varName\x00literal" entries from eq-guard negation branches (§4.F "get pattern")
}

// New returns a Stack whose "." starts out as the untracked root
// rendering context (Helm never legitimately dereferences bare "."
// for a Values field outside a with/range that rebound it).
func New() *Stack {
	return &Stack{
		dotStack: []binding{{ok: false}},
		scopes:   []*varScope{{vars: map[string]binding{}}},
		maxDepth: DefaultMaxDepth,
	}
}

// Depth reports the current with/range/helper nesting depth.
func (s *Stack) Depth() int { return len(s.dotStack) - 1 }

// AtMaxDepth reports whether pushing another frame would exceed the
// configured ceiling.
func (s *Stack) AtMaxDepth() bool { return s.Depth() >= s.maxDepth }

// PushDot rebinds "." for a with/range body and opens a fresh variable
// scope (variables declared inside are not visible once popped, but
// outer-scope variables remain visible, matching Go template scoping).
// ok is false when path isn't itself a resolvable Values reference
// (e.g. "{{ with .Chart }}"), so nested relative selectors correctly
// stay untracked too.
func (s *Stack) PushDot(path ir.ValuePath, ok bool) {
	s.dotStack = append(s.dotStack, binding{path: path, ok: ok})
	s.scopes = append(s.scopes, &varScope{vars: map[string]binding{}})
}

// PopDot reverses the most recent PushDot.
func (s *Stack) PopDot() {
	s.dotStack = s.dotStack[:len(s.dotStack)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Define records a variable's resolved path ("" / ok=false if it isn't
// a trackable Values-rooted reference) in the current scope.
func (s *Stack) Define(name string, path ir.ValuePath, ok bool) {
	s.scopes[len(s.scopes)-1].vars[name] = binding{path: path, ok: ok}
}

// DefineDomain records a variable whose value is one of a known set of
// string literals (the literal-list range form, §4.F form 3), optionally
// prefixed by base when it was produced via the "get" pattern (§4.F
// "get pattern"). Resolving name or name.field later expands to one
// path per literal via ResolveDomain.
func (s *Stack) DefineDomain(name string, base ir.ValuePath, literals []string) {
	s.scopes[len(s.scopes)-1].vars[name] = binding{path: base, domain: literals, domainOwner: name}
}

// DefineDomainFrom defines name as get-bound to base, inheriting its
// literal domain (and, transitively, its exclusion owner) from
// sourceVar. Returns false when sourceVar has no known domain, leaving
// name undefined so the caller can fall back to an untracked binding.
func (s *Stack) DefineDomainFrom(name string, base ir.ValuePath, sourceVar string) bool {
	b, found := s.lookup(sourceVar)
	if !found || b.domain == nil {
		return false
	}

	owner := b.domainOwner
	if owner == "" {
		owner = sourceVar
	}

	s.scopes[len(s.scopes)-1].vars[name] = binding{path: base, domain: b.domain, domainOwner: owner}

	return true
}

// Domain reports the literal domain bound to name, if any, walking
// outward through enclosing scopes like lookup.
func (s *Stack) Domain(name string) ([]string, bool) {
	b, found := s.lookup(name)
	if !found || b.domain == nil {
		return nil, false
	}

	return b.domain, true
}

// lookup walks outward through enclosing scopes for a variable.
func (s *Stack) lookup(name string) (binding, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if b, ok := s.scopes[i].vars[name]; ok {
			return b, true
		}
	}

	return binding{}, false
}

// ExcludeMark returns a savepoint for the exclusion stack (mirrors
// guard.Stack's Mark/Restore convention).
func (s *Stack) ExcludeMark() int { return len(s.exclude) }

// PushExclude records that literal is excluded from varName's domain
// for the remainder of the current scope (an "eq $k \"literal\""
// negation branch, §4.F "get pattern" exclusion rule).
func (s *Stack) PushExclude(varName, literal string) {
	s.exclude = append(s.exclude, varName+"\x00"+literal)
}

// RestoreExclude truncates the exclusion stack back to mark.
func (s *Stack) RestoreExclude(mark int) {
	s.exclude = s.exclude[:mark]
}

func (s *Stack) isExcluded(varName, literal string) bool {
	key := varName + "\x00" + literal
	for _, e := range s.exclude {
		if e == key {
			return true
		}
	}

	return false
}

// ResolveDomain attempts to resolve expr ("$v" or "$v.field…") against a
// variable carrying a literal domain, expanding by cross-product into
// one ValuePath per non-excluded literal (§4.F, §8 law "literal-list
// expansion"). ok is false when expr's head isn't a domain-bearing
// variable; callers should fall back to ResolveSelector in that case.
func (s *Stack) ResolveDomain(expr string) ([]ir.ValuePath, bool) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "$") {
		return nil, false
	}

	rest := strings.TrimPrefix(expr, "$")
	parts := strings.SplitN(rest, ".", 2)

	name := parts[0]

	domain, found := s.Domain(name)
	if !found {
		return nil, false
	}

	var tail []string
	if len(parts) == 2 {
		tail = strings.Split(parts[1], ".")
	}

	b, _ := s.lookup(name)

	owner := b.domainOwner
	if owner == "" {
		owner = name
	}

	out := make([]ir.ValuePath, 0, len(domain))

	for _, lit := range domain {
		if s.isExcluded(owner, lit) {
			continue
		}

		out = append(out, joinPath(b.path.Join(lit), tail))
	}

	return out, true
}

// ResolveSelector resolves a field-access expression (".Values.foo",
// ".foo" relative to the current dot, "$x.foo") to the ValuePath it
// denotes. ok is false when the expression is not a Values-rooted
// reference (e.g. ".Chart.Name", ".Release.Name", a variable bound to
// a literal or an unresolvable map key).
func (s *Stack) ResolveSelector(expr string) (ir.ValuePath, bool) {
	expr = strings.TrimSpace(expr)

	switch {
	case expr == ".":
		dot := s.dotStack[len(s.dotStack)-1]
		return dot.path, dot.ok

	case strings.HasPrefix(expr, "$"):
		return s.resolveVarSelector(expr)

	case strings.HasPrefix(expr, "."):
		return s.resolveDotSelector(expr)

	default:
		return "", false
	}
}

func (s *Stack) resolveDotSelector(expr string) (ir.ValuePath, bool) {
	rest := strings.TrimPrefix(expr, ".")
	if rest == "" {
		dot := s.dotStack[len(s.dotStack)-1]
		return dot.path, dot.ok
	}

	segments := strings.Split(rest, ".")

	// ".Values..." is always an absolute reference, regardless of the
	// current dot, since Values itself is never rebound.
	if segments[0] == "Values" {
		if len(segments) == 1 {
			return "", true
		}

		return joinPath("", segments[1:]), true
	}

	if isBuiltinRoot(segments[0]) {
		return "", false
	}

	dot := s.dotStack[len(s.dotStack)-1]
	if !dot.ok {
		return "", false
	}

	return joinPath(dot.path, segments), true
}

func (s *Stack) resolveVarSelector(expr string) (ir.ValuePath, bool) {
	rest := strings.TrimPrefix(expr, "$")
	parts := strings.SplitN(rest, ".", 2)

	b, found := s.lookup(parts[0])
	if !found || !b.ok {
		return "", false
	}

	if len(parts) == 1 {
		return b.path, true
	}

	return joinPath(b.path, strings.Split(parts[1], ".")), true
}

func joinPath(base ir.ValuePath, segments []string) ir.ValuePath {
	p := base
	for _, seg := range segments {
		if seg == "" {
			continue
		}

		p = p.Join(seg)
	}

	return p
}

func isBuiltinRoot(name string) bool {
	switch name {
	case "Chart", "Release", "Capabilities", "Files", "Template", "Subcharts":
		return true
	default:
		return false
	}
}

// RangeHeader describes the parsed shape of a {{range ...}} header
// (§4.F): the one-var form ("range .Values.list"), the two-var form
// ("range $k, $v := .Values.map"), and the literal-list form
// ("range $x := list \"a\" \"b\" \"c\"").
type RangeHeader struct {
	KeyVar        string // set only for the two-var form
	ValueVar      string // set for one-var ("$x := ...") and two-var forms
	Base          string // the selector expression being ranged over, e.g. ".Values.list"
	Literals      []string
	IsLiteralList bool
}

// ParseRangeHeader parses a range header's reconstructed pipe source.
func ParseRangeHeader(source string) RangeHeader {
	source = strings.TrimSpace(source)

	declPart, exprPart, hasDecl := strings.Cut(source, ":=")
	if !hasDecl {
		return RangeHeader{Base: source}
	}

	exprPart = strings.TrimSpace(exprPart)
	vars := strings.Split(declPart, ",")

	var h RangeHeader

	switch len(vars) {
	case 1:
		h.ValueVar = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(vars[0]), "$"))
	case 2:
		h.KeyVar = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(vars[0]), "$"))
		h.ValueVar = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(vars[1]), "$"))
	}

	if strings.HasPrefix(exprPart, "list ") {
		h.IsLiteralList = true
		h.Literals = parseLiteralListArgs(strings.TrimPrefix(exprPart, "list "))

		return h
	}

	h.Base = exprPart

	return h
}

func parseLiteralListArgs(rest string) []string {
	var (
		out   []string
		inStr bool
		cur   strings.Builder
	)

	for _, r := range strings.TrimSpace(rest) {
		switch {
		case r == '"':
			inStr = !inStr
			if !inStr {
				out = append(out, cur.String())
				cur.Reset()
			}
		case inStr:
			cur.WriteRune(r)
		default:
			// whitespace between quoted args, ignore
		}
	}

	return out
}
