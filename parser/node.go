package parser

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is the minimal query capability the row parser needs from a markup
// tree. Implementations must not panic on selectors that match nothing.
type Node interface {
	// Find returns every descendant matching selector, in document order.
	Find(selector string) []Node
	// Text returns the node's text with whitespace runs collapsed.
	Text() string
	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)
}

// Selection adapts a goquery selection to Node. Only the first element of
// the wrapped selection is considered.
type Selection struct {
	sel *goquery.Selection
}

// NewSelection wraps s.
func NewSelection(s *goquery.Selection) Selection {
	return Selection{sel: s.First()}
}

// Find implements Node.
func (s Selection) Find(selector string) []Node {
	if s.sel == nil {
		return nil
	}
	found := s.sel.Find(selector)
	out := make([]Node, 0, found.Length())
	found.Each(func(_ int, child *goquery.Selection) {
		out = append(out, Selection{sel: child})
	})
	return out
}

// Text implements Node. Text nodes are joined with a space so adjacent
// inline elements do not run together.
func (s Selection) Text() string {
	if s.sel == nil || len(s.sel.Nodes) == 0 {
		return ""
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(s.sel.Nodes[0])
	return collapse(strings.Join(parts, " "))
}

// Attr implements Node.
func (s Selection) Attr(name string) (string, bool) {
	if s.sel == nil {
		return "", false
	}
	return s.sel.Attr(name)
}

// Rows parses markup and returns the list rows it contains.
func Rows(r io.Reader) ([]Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return NewSelection(doc.Selection).Find(RowSelector), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
