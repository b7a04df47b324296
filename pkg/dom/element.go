package dom

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is a non-owning handle on an element node.
type Element struct {
	node *html.Node
	doc  *Document
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node { return e.node }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Equal reports whether e and o refer to the same node.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.node == o.node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string { return attr(e.node, "id") }

// Attr returns the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets an attribute, replacing an existing value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes an attribute if present.
func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Key != name {
			attrs = append(attrs, a)
		}
	}
	e.node.Attr = attrs
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	return strings.Fields(attr(e.node, "class"))
}

// HasClass reports whether the class list contains class.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds classes that are not yet present.
func (e *Element) AddClass(classes ...string) {
	list := e.Classes()
	for _, c := range classes {
		if c == "" || contains(list, c) {
			continue
		}
		list = append(list, c)
	}
	e.SetAttr("class", strings.Join(list, " "))
}

// RemoveClass removes classes if present.
func (e *Element) RemoveClass(classes ...string) {
	list := e.Classes()
	out := list[:0]
	for _, c := range list {
		if !contains(classes, c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(out, " "))
}

// ToggleClass adds class when on is true and removes it otherwise.
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
	} else {
		e.RemoveClass(class)
	}
}

// Style returns an inline style property, or "" when unset.
func (e *Element) Style(prop string) string {
	for _, d := range parseStyle(attr(e.node, "style")) {
		if d[0] == prop {
			return d[1]
		}
	}
	return ""
}

// SetStyle sets an inline style property. An empty value removes it.
func (e *Element) SetStyle(prop, value string) {
	decls := parseStyle(attr(e.node, "style"))
	found := false
	out := decls[:0]
	for _, d := range decls {
		if d[0] == prop {
			found = true
			if value == "" {
				continue
			}
			d[1] = value
		}
		out = append(out, d)
	}
	if !found && value != "" {
		out = append(out, [2]string{prop, value})
	}
	if len(out) == 0 {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", formatStyle(out))
}

// Hide sets display: none.
func (e *Element) Hide() { e.SetStyle("display", "none") }

// Show removes an inline display: none.
func (e *Element) Show() { e.SetStyle("display", "") }

// Hidden reports whether the element is hidden inline.
func (e *Element) Hidden() bool { return e.Style("display") == "none" }

// Text returns the concatenated text content.
func (e *Element) Text() string {
	return goquery.NewDocumentFromNode(e.node).Text()
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(text string) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Parent returns the parent element, or nil at the top of the tree.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Index returns the position of e among its element siblings, or -1.
func (e *Element) Index() int {
	p := e.node.Parent
	if p == nil {
		return -1
	}
	i := 0
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if c == e.node {
			return i
		}
		if c.Type == html.ElementNode {
			i++
		}
	}
	return -1
}

// Find returns the descendants matching selector.
func (e *Element) Find(selector string) ([]*Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return e.doc.wrapAll(e.selection().FindMatcher(m).Nodes), nil
}

// First returns the first descendant matching selector, or nil.
func (e *Element) First(selector string) *Element {
	found, err := e.Find(selector)
	if err != nil || len(found) == 0 {
		return nil
	}
	return found[0]
}

// Closest returns the nearest ancestor-or-self matching selector, or nil.
func (e *Element) Closest(selector string) *Element {
	m, err := compile(selector)
	if err != nil {
		return nil
	}
	sel := e.selection().ClosestMatcher(m)
	if sel.Length() == 0 {
		return nil
	}
	return e.doc.wrap(sel.Nodes[0])
}

// Is reports whether e matches selector.
func (e *Element) Is(selector string) bool {
	m, err := compile(selector)
	if err != nil {
		return false
	}
	return e.selection().IsMatcher(m)
}

// Contains reports whether o is a descendant of e.
func (e *Element) Contains(o *Element) bool {
	for n := o.node.Parent; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// Attached reports whether the element is connected to its document.
func (e *Element) Attached() bool {
	root := e.doc.Root()
	for n := e.node; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	detach(child.node)
	e.node.AppendChild(child.node)
}

// InsertBefore moves child in front of ref. A nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	if ref == nil || ref.node.Parent != e.node {
		e.AppendChild(child)
		return
	}
	if child.node == ref.node {
		return
	}
	detach(child.node)
	e.node.InsertBefore(child.node, ref.node)
}

// InsertAt moves child to position index among e's element children.
// Out-of-range indices are clamped.
func (e *Element) InsertAt(child *Element, index int) {
	detach(child.node)
	kids := e.Children()
	if index < 0 {
		index = 0
	}
	if index >= len(kids) {
		e.node.AppendChild(child.node)
		return
	}
	e.node.InsertBefore(child.node, kids[index].node)
}

// Remove detaches e from its parent and drops its event handlers.
func (e *Element) Remove() {
	detach(e.node)
	e.doc.offTree(e.node)
}

// OuterHTML renders the element.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, e.node)
	return buf.String()
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func parseStyle(s string) [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		out = append(out, [2]string{prop, val})
	}
	return out
}

func formatStyle(decls [][2]string) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d[0] + ": " + d[1]
	}
	return strings.Join(parts, "; ")
}
