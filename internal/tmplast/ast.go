// Package tmplast implements the Template AST contract (§3, §4.A,
// §6 "Parser contract"): a uniform tree of YAML structure interleaved
// with template actions, produced without executing the template.
//
// The concrete implementation here pairs the standard library's
// text/template/parse (which already gives control-flow nodes their
// header source as structured Pipe/Branch nodes) with a line-oriented
// YAML shape reconstruction performed downstream by the shape tracker,
// rather than a from-scratch fused grammar. Literal YAML regions are
// therefore represented as flat Text nodes; the interpreter's Shape
// Tracker (internal/shape) derives mapping/sequence nesting from their
// content, per §4.D. This keeps the contract satisfied (header source
// recoverable verbatim, selector chains structurally identifiable)
// without re-implementing a YAML grammar.
package tmplast

// Kind identifies which AST node variant a Node holds.
type Kind int

const (
	// KindText is literal, non-action source text (YAML, whitespace).
	KindText Kind = iota
	// KindComment is a {{/* ... */}} template comment.
	KindComment
	// KindExpression is a template action in output position, e.g.
	// "{{ .Values.foo | toYaml }}", or a variable definition/assignment.
	KindExpression
	// KindIf is an {{if}}/{{else if}}/{{else}}/{{end}} construct.
	KindIf
	// KindRange is a {{range}}/{{else}}/{{end}} construct.
	KindRange
	// KindWith is a {{with}}/{{else}}/{{end}} construct.
	KindWith
	// KindDefine is a {{define "name"}} ... {{end}} helper body.
	KindDefine
	// KindBlock is a {{block "name" pipe}} ... {{end}} construct: it
	// both registers a helper body named Name and behaves like an
	// immediate {{template "name" pipe}} call at its source position.
	KindBlock
)

// Node is one element of the fused AST. Only the fields relevant to
// Kind are populated; see the Kind* constant docs.
type Node struct {
	Kind Kind

	// Pos is the byte offset of the node in its source file.
	Pos int

	// Text holds the literal value for KindText and KindComment.
	Text string

	// Source holds the verbatim-reconstructed pipeline text for
	// KindExpression (the output-position action or template/include
	// call), and the condition/header text for KindIf/KindRange/
	// KindWith. Control-flow nodes must expose their header source as a
	// single string per the parser contract — this is it.
	Source string

	// Name is the helper name for KindDefine/KindBlock.
	Name string

	// Then holds the consequence children for KindIf, the body for
	// KindRange/KindWith, and the body for KindDefine/KindBlock.
	Then []Node

	// Else holds the alternative children for KindIf/KindRange/KindWith.
	// An else-if cascade appears as a single nested KindIf node inside
	// Else, matching how text/template/parse already desugars it.
	Else []Node
}

// Document is the parsed AST for a single template file.
type Document struct {
	// Name is the template/file name used as the parse key.
	Name string
	// Nodes is the ordered top-level sequence of this file's own body
	// (excluding any {{define}}/{{block}} bodies, which are returned
	// separately as helper definitions by Parse).
	Nodes []Node
}

// Definition is a named helper body extracted from a {{define}} or
// {{block}} construct anywhere in a parsed file.
type Definition struct {
	Name string
	Body []Node
}
