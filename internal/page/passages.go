// Package page finds the text passages of an HTML page and marks the ones
// that are semantically related to a topic.
package page

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/semlight/pkg/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMinPassageLength is the trimmed length a text node must exceed to be scored.
const DefaultMinPassageLength = 10

// Passage is one visible text node of a page.
type Passage struct {
	ID   string
	Text string
	node *html.Node
}

// ExtractPassages walks the body of root (or root itself when there is no
// body) and returns, in document order, every text node outside
// script/style/noscript whose trimmed text is longer than minLen runes.
func ExtractPassages(root *html.Node, minLen int) []Passage {
	var out []Passage
	start := findBody(root)
	if start == nil {
		start = root
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped(n.DataAtom) {
			return
		}
		if n.Type == html.TextNode {
			text := utils.CollapseSpace(n.Data)
			if utf8.RuneCountInString(text) > minLen {
				out = append(out, Passage{ID: uuid.NewString(), Text: text, node: n})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(start)
	return out
}

// Texts returns the text of each passage.
func Texts(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}

// VisibleText returns the collapsed text of every non-empty text node under
// root's body, one node per line.
func VisibleText(root *html.Node) string {
	var lines []string
	for _, p := range ExtractPassages(root, 0) {
		lines = append(lines, p.Text)
	}
	return strings.Join(lines, "\n")
}

func skipped(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
