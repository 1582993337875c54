package docpage

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentTree is the renderable structure built from a Fragment.
type ContentTree struct {
	markup string
	nodes  []*html.Node
}

func buildTree(f Fragment) *ContentTree {
	markup := f.concat()
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	// A strings.Reader never fails, so the only error source is unreachable.
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		nodes = nil
	}
	return &ContentTree{markup: markup, nodes: nodes}
}

// String returns the concatenated markup.
func (t *ContentTree) String() string {
	return t.markup
}

// HTML returns the markup typed for html/template.
func (t *ContentTree) HTML() template.HTML {
	return template.HTML(t.markup)
}

// Nodes returns the top-level nodes of the tree. Callers must not modify them.
func (t *ContentTree) Nodes() []*html.Node {
	return t.nodes
}

// NodeCount reports the number of top-level nodes.
func (t *ContentTree) NodeCount() int {
	return len(t.nodes)
}

// PlainText returns the visible text of the tree with whitespace collapsed.
func (t *ContentTree) PlainText() string {
	var sb strings.Builder
	for _, n := range t.nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Button:
			return
		case atom.A:
			if hasClass(n, "header-anchor") {
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}
