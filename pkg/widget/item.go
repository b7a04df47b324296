package widget

import (
	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

const (
	loadingName = "loading.."
	refreshText = "Click to refresh"

	menuWidth   = 85
	menuHeight  = 18
	menuOffsetX = -2
	menuOffsetY = 2
)

// Item is a single component placed inside a container.
type Item struct {
	node

	container *Container
	name      string
	temporary bool

	menu      *dom.Element
	nameLabel *dom.Element
}

// NewItem is the Constructor for container items.
func NewItem(r *Registry, id string, el *dom.Element) (Widget, error) {
	return newItem(r.Env(), id, el), nil
}

func newItem(env *Env, id string, el *dom.Element) *Item {
	it := &Item{
		node: newNode(env, id, KindItem, el),
		name: loadingName,
	}
	it.cls.selected = ClassSelected + "-containerItem"
	it.cls.activated = ClassActivated + "-containerItem"
	it.cls.mark = ClassOverlayItem

	if _, ok := el.Attr(AttrTemporary); ok {
		it.temporary = true
		el.SetText(refreshText)
	}

	it.hooks.overlayBox = it.overlayBox
	it.hooks.onRender = it.renderMenu
	it.hooks.onSync = it.syncMenu
	it.hooks.onClick = it.click
	it.hooks.onDestroy = func() {
		if it.menu != nil {
			it.menu.Remove()
			it.menu, it.nameLabel = nil, nil
		}
	}
	return it
}

// Render renders the item overlay inside parent. A *Container parent
// becomes the item's owner.
func (it *Item) Render(parent Parent) {
	if it.rendered {
		return
	}
	if c, ok := parent.(*Container); ok {
		it.container = c
	}
	it.node.Render(parent)
}

// Container returns the owning container, or nil before the first render.
func (it *Item) Container() *Container { return it.container }

// Name returns the display label.
func (it *Item) Name() string { return it.name }

// Temporary reports whether the item awaits a backend-assigned identity.
func (it *Item) Temporary() bool { return it.temporary }

// Menu returns the floating action menu, or nil when not rendered.
func (it *Item) Menu() *dom.Element { return it.menu }

// DeleteButton returns the menu's delete button, or nil.
func (it *Item) DeleteButton() *dom.Element {
	if it.menu == nil {
		return nil
	}
	return it.menu.First("." + ClassMenuButton)
}

// overlayBox positions the overlay relative to the container overlay.
func (it *Item) overlayBox(src geometry.Rect, border float64) (geometry.Rect, string) {
	c := it.container
	if c == nil || c.overlay == nil {
		return src, geometry.PositionAbsolute
	}
	parent, err := it.env.Layout.Box(c.overlay)
	if err != nil {
		it.env.Logger.Debug("container overlay not measurable", "item", it.id, "err", err)
		return src, geometry.PositionAbsolute
	}
	return geometry.ItemOverlay(src, parent, c.margin, border), "inherit"
}

func (it *Item) renderMenu() {
	doc := it.env.Doc
	bg := doc.CreateElement("div")
	bg.AddClass(ClassBackground)
	it.overlay.AppendChild(bg)

	it.menu = doc.CreateElement("div")
	it.menu.AddClass(ClassMenu)
	it.menu.SetAttr(AttrID, it.id)
	doc.Body().AppendChild(it.menu)

	del := doc.CreateElement("div")
	del.AddClass(ClassMenuButton)
	del.SetText("X")
	doc.On(del, dom.EventClick, func(ev *dom.Event) {
		ev.StopPropagation()
		it.env.send(channel.TagRemove, channel.ElementPayload{Element: it.id})
	})
	it.menu.AppendChild(del)

	it.nameLabel = doc.CreateElement("div")
	it.nameLabel.AddClass(ClassNameLabel)
	it.menu.AppendChild(it.nameLabel)
	it.renderLabel()
	it.syncMenu()
}

func (it *Item) renderLabel() {
	if it.nameLabel != nil {
		it.nameLabel.SetText(it.name)
	}
}

// syncMenu anchors the menu to the top-right corner of the item.
func (it *Item) syncMenu() {
	if it.menu == nil {
		return
	}
	src, err := it.env.Layout.Box(it.element)
	if err != nil {
		return
	}
	dom.ApplyBox(it.menu, geometry.MenuBox(src, menuWidth, menuHeight, menuOffsetX, menuOffsetY), geometry.PositionAbsolute)
}

func (it *Item) click() {
	if it.temporary {
		it.env.send(channel.TagRefresh, nil)
		return
	}
	it.env.send(channel.TagOnClick, channel.ElementPayload{Element: it.id})
}

// OnDragStart marks the live element as dragged and hides the menu.
func (it *Item) OnDragStart() {
	it.element.AddClass(ClassItemOnDrag)
	if it.menu != nil {
		it.menu.Hide()
	}
}

// OnDragStop undoes OnDragStart.
func (it *Item) OnDragStop() {
	it.element.RemoveClass(ClassItemOnDrag)
	if it.menu != nil {
		it.menu.Show()
	}
}

// UpdateSharedData sets the label from f. Unresolved names keep the
// current label.
func (it *Item) UpdateSharedData(f NameFacade) {
	if f == nil {
		return
	}
	if name, ok := f.GetName(it.id); ok && name != "" {
		it.name = name
	}
	it.renderLabel()
}
