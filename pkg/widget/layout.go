package widget

import (
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

// Layout describes how a container variant wraps its items in the live
// markup and along which axis they flow.
type Layout struct {
	Name      string
	Direction geometry.Direction

	wrapper string // wrapper tag
	cell    string // optional inner tag between wrapper and item
	body    string // optional slot element below the container box
}

// Container layouts.
var (
	TableLayout         = Layout{Name: "table", Direction: geometry.Vertical, wrapper: "tr", cell: "td", body: "tbody"}
	OrderedListLayout   = Layout{Name: "ordered-list", Direction: geometry.Vertical, wrapper: "li"}
	UnorderedListLayout = Layout{Name: "unordered-list", Direction: geometry.Vertical, wrapper: "li"}
	BoxLayout           = Layout{Name: "box", Direction: geometry.Vertical, wrapper: "div"}
	SpanLayout          = Layout{Name: "span", Direction: geometry.Horizontal, wrapper: "span"}
)

// wrap puts el into a new wrapper element carrying class.
func (l Layout) wrap(doc *dom.Document, el *dom.Element, class string) *dom.Element {
	w := doc.CreateElement(l.wrapper)
	w.AddClass(class)
	inner := w
	if l.cell != "" {
		inner = doc.CreateElement(l.cell)
		w.AppendChild(inner)
	}
	inner.AppendChild(el)
	return w
}

// slot returns the element wrappers are children of, creating it when the
// layout needs one that is missing.
func (l Layout) slot(doc *dom.Document, box *dom.Element) *dom.Element {
	if l.body == "" {
		return box
	}
	for _, c := range box.Children() {
		if c.Tag() == l.body {
			return c
		}
	}
	b := doc.CreateElement(l.body)
	box.AppendChild(b)
	return b
}
