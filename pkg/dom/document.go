package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document with an event registry.
type Document struct {
	doc      *goquery.Document
	handlers map[*html.Node]map[string][]Handler
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	d, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{doc: d, handlers: make(map[*html.Node]map[string][]Handler)}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(src string) (*Document, error) {
	return Parse(strings.NewReader(src))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.doc.Selection.Nodes[0]
}

// Body returns the body element. The HTML parser always creates one.
func (d *Document) Body() *Element {
	sel := d.doc.Find("body").First()
	if sel.Length() == 0 {
		return nil
	}
	return d.wrap(sel.Nodes[0])
}

// Wrap returns an element handle for n.
func (d *Document) Wrap(n *html.Node) *Element {
	return d.wrap(n)
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{node: n, doc: d}
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
	}
	return out
}

// Find returns all elements matching selector in document order.
func (d *Document) Find(selector string) ([]*Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return d.wrapAll(d.doc.FindMatcher(m).Nodes), nil
}

// ElementByID returns the element whose id attribute equals id, or nil.
// It walks the tree instead of using a selector so ids with selector
// metacharacters work.
func (d *Document) ElementByID(id string) *Element {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && attr(c, "id") == id {
				found = c
				return
			}
			walk(c)
		}
	}
	walk(d.Root())
	return d.wrap(found)
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// Fragment parses src as body content and returns its top-level elements,
// detached from any parent.
func (d *Document) Fragment(src string) ([]*Element, error) {
	nodes, err := html.ParseFragment(strings.NewReader(strings.TrimSpace(src)), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
	}
	return out, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root())
}

// HTML returns the document as an HTML string.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}
