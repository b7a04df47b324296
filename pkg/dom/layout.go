package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

// BoxAttr holds a precomputed "left,top,width,height" box for headless layout.
const BoxAttr = "data-box"

// Layout answers element geometry.
type Layout interface {
	// Box returns the element's outer box in page coordinates.
	Box(el *Element) (geometry.Rect, error)
	// BorderWidth returns the element's left border width.
	BorderWidth(el *Element) float64
}

// AttrLayout reads boxes from the data-box attribute or from inline
// left/top/width/height styles.
type AttrLayout struct{}

// Box implements Layout.
func (AttrLayout) Box(el *Element) (geometry.Rect, error) {
	if el == nil || !el.Attached() {
		return geometry.Rect{}, errors.New(errors.ErrCodeDetached, "element %s is not attached", Path(el))
	}
	if v, ok := el.Attr(BoxAttr); ok {
		r, err := geometry.ParseRect(v)
		if err != nil {
			return geometry.Rect{}, errors.Wrap(errors.ErrCodeNoLayout, err, "bad %s on %s", BoxAttr, Path(el))
		}
		return r, nil
	}
	var vals [4]float64
	for i, prop := range []string{"left", "top", "width", "height"} {
		v, ok := parsePx(el.Style(prop))
		if !ok {
			return geometry.Rect{}, errors.New(errors.ErrCodeNoLayout, "no layout for %s", Path(el))
		}
		vals[i] = v
	}
	return geometry.Rect{Left: vals[0], Top: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// BorderWidth implements Layout. Missing or unparsable widths count as zero.
func (AttrLayout) BorderWidth(el *Element) float64 {
	if el == nil {
		return 0
	}
	for _, prop := range []string{"border-left-width", "border-width"} {
		if v, ok := parsePx(el.Style(prop)); ok {
			return v
		}
	}
	return 0
}

// ApplyBox writes r as inline style on el. An empty position leaves the
// position property untouched.
func ApplyBox(el *Element, r geometry.Rect, position string) {
	if position != "" {
		el.SetStyle("position", position)
	}
	el.SetStyle("left", px(r.Left))
	el.SetStyle("top", px(r.Top))
	el.SetStyle("width", px(r.Width))
	el.SetStyle("height", px(r.Height))
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func parsePx(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Path returns a short selector-like description of el for logging,
// e.g. "body > div#main > ul.hst-container > li:nth-child(2)".
func Path(el *Element) string {
	if el == nil {
		return "<nil>"
	}
	var parts []string
	for e := el; e != nil; e = e.Parent() {
		parts = append(parts, segment(e))
		if e.Tag() == "body" || e.ID() != "" {
			break
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func segment(e *Element) string {
	s := e.Tag()
	if id := e.ID(); id != "" {
		return s + "#" + id
	}
	if cls := e.Classes(); len(cls) > 0 {
		s += "." + cls[0]
	}
	if p := e.Parent(); p != nil && len(p.Children()) > 1 {
		s += fmt.Sprintf(":nth-child(%d)", e.Index()+1)
	}
	return s
}
