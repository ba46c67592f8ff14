package page

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultClassName is the class set on highlight wrappers.
const DefaultClassName = "semantic-highlight"

// wrap replaces p's text node with <span class=className data-score=...>text</span>.
func wrap(p Passage, className string, score float64) {
	n := p.node
	parent := n.Parent
	if parent == nil {
		return
	}
	span := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     atom.Span.String(),
		Attr: []html.Attribute{
			{Key: "class", Val: className},
			{Key: "data-score", Val: strconv.FormatFloat(score, 'f', 4, 64)},
			{Key: "data-passage-id", Val: p.ID},
		},
	}
	parent.InsertBefore(span, n)
	parent.RemoveChild(n)
	span.AppendChild(n)
}

// ClearHighlights unwraps every span carrying className, keeping its
// children in place, and merges the text nodes that become adjacent.
// Returns the number of wrappers removed.
func ClearHighlights(root *html.Node, className string) int {
	var marks []*html.Node
	var find func(n *html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Span && hasClass(n, className) {
			marks = append(marks, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)

	for _, span := range marks {
		parent := span.Parent
		if parent == nil {
			continue
		}
		for c := span.FirstChild; c != nil; c = span.FirstChild {
			span.RemoveChild(c)
			parent.InsertBefore(c, span)
		}
		parent.RemoveChild(span)
		mergeText(parent)
	}
	return len(marks)
}

func hasClass(n *html.Node, className string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == className {
				return true
			}
		}
	}
	return false
}

func mergeText(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if next != nil && c.Type == html.TextNode && next.Type == html.TextNode {
			c.Data += next.Data
			parent.RemoveChild(next)
			continue
		}
		c = next
	}
}
