package widget

import (
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

// classes are the state classes of a widget variant.
type classes struct {
	selected  string
	activated string
	mark      string
	custom    string
}

// hooks are the variant-specific steps of the shared overlay lifecycle.
type hooks struct {
	// overlayBox turns the live element box into the overlay box and CSS
	// position.
	overlayBox func(src geometry.Rect, border float64) (geometry.Rect, string)
	onRender   func()
	onSync     func()
	onClick    func()
	onDestroy  func()
}

// node is the overlay base shared by containers and items.
type node struct {
	env      *Env
	id       string
	kind     Kind
	element  *dom.Element
	overlay  *dom.Element
	parent   Parent
	rendered bool
	noHover  bool
	cls      classes
	hooks    hooks
}

func newNode(env *Env, id string, kind Kind, el *dom.Element) node {
	return node{
		env:     env,
		id:      id,
		kind:    kind,
		element: el,
		cls:     classes{selected: ClassSelected, activated: ClassActivated},
	}
}

// ID returns the widget id.
func (n *node) ID() string { return n.id }

// Kind returns the widget variant.
func (n *node) Kind() Kind { return n.kind }

// Element returns the live element.
func (n *node) Element() *dom.Element { return n.element }

// Overlay returns the overlay element, or nil when not rendered.
func (n *node) Overlay() *dom.Element { return n.overlay }

// Rendered reports whether the overlay exists.
func (n *node) Rendered() bool { return n.rendered }

// NoHover reports whether hover styling is suppressed.
func (n *node) NoHover() bool { return n.noHover }

// Render creates the overlay under parent's overlay surface. It is a no-op
// when already rendered.
func (n *node) Render(parent Parent) {
	if n.rendered {
		return
	}
	n.parent = parent
	doc := n.env.Doc
	surface := doc.Body()
	if parent != nil {
		if s := parent.OverlaySurface(); s != nil {
			surface = s
		}
	}

	ov := doc.CreateElement("div")
	ov.AddClass(ClassOverlay, n.cls.mark, n.cls.custom)
	ov.SetStyle("position", geometry.PositionAbsolute)
	ov.SetAttr(AttrID, n.id)
	ov.SetAttr("id", n.id+"-overlay")
	surface.AppendChild(ov)

	doc.On(ov, dom.EventMouseOver, func(*dom.Event) {
		if !n.noHover {
			ov.AddClass(ClassHover)
		}
	})
	doc.On(ov, dom.EventMouseOut, func(*dom.Event) {
		if !n.noHover {
			ov.RemoveClass(ClassHover)
		}
	})
	doc.On(ov, dom.EventClick, func(*dom.Event) {
		if n.hooks.onClick != nil {
			n.hooks.onClick()
		}
	})

	n.overlay = ov
	n.rendered = true
	n.syncOverlay()
	if n.hooks.onRender != nil {
		n.hooks.onRender()
	}
}

// Sync repositions the overlay over the live element.
func (n *node) Sync() { n.syncOverlay() }

func (n *node) syncOverlay() {
	if !n.rendered {
		return
	}
	src, err := n.env.Layout.Box(n.element)
	if err != nil {
		n.env.Logger.Debug("sync skipped", "id", n.id, "err", err)
		return
	}
	border := n.env.Layout.BorderWidth(n.overlay)
	box, position := src, geometry.PositionAbsolute
	if n.hooks.overlayBox != nil {
		box, position = n.hooks.overlayBox(src, border)
	}
	dom.ApplyBox(n.overlay, box, position)
	if n.hooks.onSync != nil {
		n.hooks.onSync()
	}
}

// Destroy releases the overlay. Destroying twice is a no-op.
func (n *node) Destroy() {
	if !n.rendered {
		return
	}
	if n.hooks.onDestroy != nil {
		n.hooks.onDestroy()
	}
	n.overlay.Remove()
	n.overlay = nil
	n.rendered = false
}

// Select marks the widget selected.
func (n *node) Select() {
	n.element.AddClass(n.cls.selected)
	if n.overlay != nil {
		n.overlay.AddClass(n.cls.selected)
	}
}

// Deselect clears the selected mark.
func (n *node) Deselect() {
	n.element.RemoveClass(n.cls.selected)
	if n.overlay != nil {
		n.overlay.RemoveClass(n.cls.selected)
	}
}

// Selected reports whether the live element carries the selected mark.
func (n *node) Selected() bool { return n.element.HasClass(n.cls.selected) }

// Activate marks the live element activated.
func (n *node) Activate() { n.element.AddClass(n.cls.activated) }

// Deactivate clears the activated mark.
func (n *node) Deactivate() { n.element.RemoveClass(n.cls.activated) }

// ToggleNoHover flips hover suppression.
func (n *node) ToggleNoHover() { n.setNoHover(!n.noHover) }

func (n *node) setNoHover(on bool) {
	n.noHover = on
	if on && n.overlay != nil {
		n.overlay.RemoveClass(ClassHover)
	}
}
