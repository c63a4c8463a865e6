// Package ir defines the intermediate representation the interpreter emits:
// value paths, YAML paths, guards, resource references, and value uses
// (§3 of the chart analysis data model).
package ir

import (
	"sort"
	"strings"
)

// ValuePath is the literal dotted path of a reference into the values
// tree, e.g. "ingress.hostname". The wildcard segment "*" denotes "every
// element of a list" when produced by iteration over a list.
type ValuePath string

// Join appends a field to the path, returning a new ValuePath.
func (p ValuePath) Join(field string) ValuePath {
	if p == "" {
		return ValuePath(field)
	}

	return ValuePath(string(p) + "." + field)
}

// Segments splits the path on ".".
func (p ValuePath) Segments() []string {
	if p == "" {
		return nil
	}

	return strings.Split(string(p), ".")
}

// Segment is one element of a YAMLPath: either a bare mapping key or a
// mapping key suffixed with the list-item marker "[*]".
type Segment string

// ListMarker is the standalone list-item marker used when no parent key
// exists (e.g. the document root is itself a sequence).
const ListMarker Segment = "[*]"

// IsListItem reports whether the segment denotes a list-item descent.
func (s Segment) IsListItem() bool {
	return strings.HasSuffix(string(s), "[*]")
}

// YAMLPath is an ordered sequence of segments describing where a value
// lands within a rendered YAML document. An empty path denotes the
// document root or an unplaced expression.
type YAMLPath []Segment

// String renders the path as a dotted string for display/sorting, e.g.
// "spec.containers[*].image".
func (p YAMLPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = string(s)
	}

	return strings.Join(parts, ".")
}

// WithListItem returns a copy of the path with "[*]" appended to its
// last segment (or a standalone list marker if the path is empty).
func (p YAMLPath) WithListItem() YAMLPath {
	if len(p) == 0 {
		return YAMLPath{ListMarker}
	}

	out := make(YAMLPath, len(p))
	copy(out, p)
	out[len(out)-1] = Segment(string(out[len(out)-1]) + "[*]")

	return out
}

// WithKey returns a copy of the path with an additional mapping-key
// segment appended.
func (p YAMLPath) WithKey(key string) YAMLPath {
	out := make(YAMLPath, len(p), len(p)+1)
	copy(out, p)

	return append(out, Segment(key))
}

// TrimTrailingListItem strips a trailing "[*]" suffix from the last
// segment and a trailing empty segment, used when a Fragment use lands
// at the containing mapping/sequence rather than at a list-item boundary.
func (p YAMLPath) TrimTrailingListItem() YAMLPath {
	if len(p) == 0 {
		return p
	}

	out := make(YAMLPath, len(p))
	copy(out, p)

	last := string(out[len(out)-1])
	if strings.HasSuffix(last, "[*]") {
		out[len(out)-1] = Segment(strings.TrimSuffix(last, "[*]"))
		if out[len(out)-1] == "" {
			out = out[:len(out)-1]
		}
	}

	return out
}

// GuardKind identifies the shape of a predicate derived from a
// control-flow header (§3, §4.E).
type GuardKind int

const (
	// GuardTruthy means the path is non-empty/true.
	GuardTruthy GuardKind = iota
	// GuardNot means the path is empty/false.
	GuardNot
	// GuardEq means the path equals a literal.
	GuardEq
	// GuardOr is a disjunction over truthy predicates.
	GuardOr
)

// Guard is one predicate active at emission time.
type Guard struct {
	Kind    GuardKind
	Path    ValuePath   // GuardTruthy, GuardNot, GuardEq
	Literal string      // GuardEq only
	Paths   []ValuePath // GuardOr only
}

// Truthy constructs a Truthy guard.
func Truthy(path ValuePath) Guard { return Guard{Kind: GuardTruthy, Path: path} }

// Not constructs a Not guard.
func Not(path ValuePath) Guard { return Guard{Kind: GuardNot, Path: path} }

// Eq constructs an Eq guard.
func Eq(path ValuePath, literal string) Guard { return Guard{Kind: GuardEq, Path: path, Literal: literal} }

// OrGuard constructs an Or guard over the given paths.
func OrGuard(paths ...ValuePath) Guard { return Guard{Kind: GuardOr, Paths: paths} }

// ReferencedPaths returns every value path this guard depends on.
func (g Guard) ReferencedPaths() []ValuePath {
	if g.Kind == GuardOr {
		return g.Paths
	}

	if g.Path == "" {
		return nil
	}

	return []ValuePath{g.Path}
}

// Negate returns the logical negation of the guard where decomposable.
// Truthy<->Not are negations of each other; Eq, Or, and unrecognized
// guards have no clean negation and are returned unchanged (callers
// should treat that as "not decomposable").
func (g Guard) Negate() (Guard, bool) {
	switch g.Kind {
	case GuardTruthy:
		return Not(g.Path), true
	case GuardNot:
		return Truthy(g.Path), true
	default:
		return g, false
	}
}

// String renders the guard for sorting/debugging/display.
func (g Guard) String() string {
	switch g.Kind {
	case GuardTruthy:
		return string(g.Path)
	case GuardNot:
		return "not " + string(g.Path)
	case GuardEq:
		return "eq " + string(g.Path) + " " + g.Literal
	case GuardOr:
		parts := make([]string, len(g.Paths))
		for i, p := range g.Paths {
			parts[i] = string(p)
		}

		return "or(" + strings.Join(parts, ",") + ")"
	default:
		return ""
	}
}

// ValueKind distinguishes whether an expression contributes a scalar or
// a YAML fragment.
type ValueKind int

const (
	// Scalar is an expression whose rendered output is a single value.
	Scalar ValueKind = iota
	// Fragment is an expression whose rendered output is a YAML block.
	Fragment
)

func (k ValueKind) String() string {
	if k == Fragment {
		return "Fragment"
	}

	return "Scalar"
}

// Resource identifies the Kubernetes apiVersion/kind a document
// describes. APIVersion may be empty when unknown. Alternates records
// non-preferred apiVersion candidates collected from the same header,
// for stability ranking by the schema composer.
type Resource struct {
	APIVersion string
	Kind       string
	Alternates []string
}

// Empty reports whether no kind has been established yet.
func (r Resource) Empty() bool { return r.Kind == "" }

// String renders "apiVersion/Kind" for display/sorting.
func (r Resource) String() string {
	if r.Kind == "" {
		return ""
	}

	if r.APIVersion == "" {
		return r.Kind
	}

	return r.APIVersion + "/" + r.Kind
}

// ValueUse is the interpreter's sole output tuple (§3).
type ValueUse struct {
	// SourceExpr is the dotted .Values.* path that was referenced.
	SourceExpr ValuePath
	// Path is the YAML path at which the rendered form lands.
	Path YAMLPath
	// Kind is Scalar or Fragment.
	Kind ValueKind
	// Guards are the active guards at emission time, in source order.
	Guards []Guard
	// Resource is the Kubernetes resource the containing document
	// describes, or the zero value when undetermined.
	Resource Resource
}

// sortKey builds the tuple invariant (iv) sorts and dedups on:
// (source_expr, YAML path, kind, resource, guards).
func (u ValueUse) sortKey() string {
	var sb strings.Builder

	sb.WriteString(string(u.SourceExpr))
	sb.WriteByte('\x00')
	sb.WriteString(u.Path.String())
	sb.WriteByte('\x00')
	sb.WriteString(u.Kind.String())
	sb.WriteByte('\x00')
	sb.WriteString(u.Resource.String())

	for _, g := range u.Guards {
		sb.WriteByte('\x00')
		sb.WriteString(g.String())
	}

	return sb.String()
}

// SortAndDedup sorts uses by (source_expr, YAML path, kind, resource,
// guards) and removes exact duplicates, satisfying invariant (iv).
func SortAndDedup(uses []ValueUse) []ValueUse {
	if len(uses) == 0 {
		return uses
	}

	keyed := make([]struct {
		key string
		u   ValueUse
	}, len(uses))

	for i, u := range uses {
		keyed[i] = struct {
			key string
			u   ValueUse
		}{u.sortKey(), u}
	}

	sort.Slice(keyed, func(i, j int) bool { return keyed[i].key < keyed[j].key })

	out := make([]ValueUse, 0, len(keyed))

	var lastKey string

	for i, k := range keyed {
		if i > 0 && k.key == lastKey {
			continue
		}

		out = append(out, k.u)
		lastKey = k.key
	}

	return out
}
