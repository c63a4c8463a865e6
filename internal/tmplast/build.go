package tmplast

import (
	"fmt"
	"text/template/parse"
)

// Parse parses a single template file's text into a Document (its own
// top-level body) plus every named helper body ({{define}}/{{block}})
// reachable from it. It never executes the template — text/template/
// parse only lexes and builds the node tree.
//
// funcs supplies the function names the template is allowed to call;
// pass FuncMap() unless a chart registers additional custom functions
// the caller wants recognized too.
func Parse(name, text string, funcs map[string]any) (*Document, []Definition, error) {
	tree := parse.New(name, funcs)
	tree.Mode = parse.ParseComments

	treeSet := make(map[string]*parse.Tree)

	if _, err := tree.Parse(text, "{{", "}}", treeSet, funcs); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}

	root, ok := treeSet[name]
	if !ok {
		root = tree
	}

	doc := &Document{Name: name, Nodes: convertList(root.Root)}

	var defs []Definition

	for defName, defTree := range treeSet {
		if defName == name || defTree == nil {
			continue
		}

		defs = append(defs, Definition{Name: defName, Body: convertList(defTree.Root)})
	}

	return doc, defs, nil
}

func convertList(list *parse.ListNode) []Node {
	if list == nil {
		return nil
	}

	nodes := make([]Node, 0, len(list.Nodes))

	for _, n := range list.Nodes {
		if converted, ok := convertNode(n); ok {
			nodes = append(nodes, converted)
		}
	}

	return nodes
}

func convertNode(n parse.Node) (Node, bool) {
	switch v := n.(type) {
	case *parse.TextNode:
		return Node{Kind: KindText, Pos: int(v.Pos), Text: string(v.Text)}, true

	case *parse.CommentNode:
		return Node{Kind: KindComment, Pos: int(v.Pos), Text: v.Text}, true

	case *parse.ActionNode:
		return Node{Kind: KindExpression, Pos: int(v.Pos), Source: pipeSource(v.Pipe)}, true

	case *parse.TemplateNode:
		pipe := "."
		if v.Pipe != nil {
			pipe = pipeSource(v.Pipe)
		}

		return Node{
			Kind:   KindExpression,
			Pos:    int(v.Pos),
			Source: fmt.Sprintf("template %q %s", v.Name, pipe),
		}, true

	case *parse.IfNode:
		return Node{
			Kind:   KindIf,
			Pos:    int(v.Pos),
			Source: pipeSource(v.Pipe),
			Then:   convertList(v.List),
			Else:   convertList(v.ElseList),
		}, true

	case *parse.RangeNode:
		return Node{
			Kind:   KindRange,
			Pos:    int(v.Pos),
			Source: pipeSource(v.Pipe),
			Then:   convertList(v.List),
			Else:   convertList(v.ElseList),
		}, true

	case *parse.WithNode:
		return Node{
			Kind:   KindWith,
			Pos:    int(v.Pos),
			Source: pipeSource(v.Pipe),
			Then:   convertList(v.List),
			Else:   convertList(v.ElseList),
		}, true

	default:
		// BreakNode, ContinueNode, and anything else we don't expect in
		// chart templates contribute nothing to value-use analysis.
		return Node{}, false
	}
}

func pipeSource(p *parse.PipeNode) string {
	if p == nil {
		return ""
	}

	return p.String()
}
