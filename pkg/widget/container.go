package widget

import (
	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dnd"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
	"github.com/matzehuels/pagecomposer/pkg/orderedmap"
)

const emptyText = "Empty container"

// Container is a structural region holding an ordered list of items.
//
// The key order of items is the visual order. During a gesture the
// container only records what happened in its DragState; CheckState then
// reconciles model, overlay DOM and live DOM:
//
//   - after a pure local reorder the overlay order wins and is copied into
//     the model and the live wrappers;
//   - otherwise (an item was received or added) the model order wins and
//     the overlays are re-sorted to it.
//
// A rearrange message is sent whenever the resulting order differs from
// the one recorded by the previous pass.
type Container struct {
	node

	registry  *Registry
	layout    Layout
	direction geometry.Direction
	box       *dom.Element // element carrying the hst-container class
	slot      *dom.Element // parent of the item wrappers
	host      Host

	items    *orderedmap.Map[string, *Item]
	wrappers map[string]*dom.Element

	state         DragState
	previousOrder []string
	phase         Phase
	margin        float64
	draw          *geometry.Cache
}

// NewContainer returns a Constructor for containers with the given layout.
func NewContainer(layout Layout) Constructor {
	return func(r *Registry, id string, el *dom.Element) (Widget, error) {
		return newContainer(r, id, el, layout)
	}
}

func newContainer(r *Registry, id string, el *dom.Element, layout Layout) (*Container, error) {
	env := r.Env()
	c := &Container{
		node:      newNode(env, id, KindContainer, el),
		registry:  r,
		layout:    layout,
		direction: layout.Direction,
		host:      nopHost{},
		items:     orderedmap.New[string, *Item](),
		wrappers:  make(map[string]*dom.Element),
		draw:      geometry.NewCache(env.Indicator),
	}
	c.cls.selected = ClassSelected + "-container"
	c.cls.activated = ClassActivated + "-container"
	c.cls.custom = ClassOverlayContainer

	if v, ok := el.Attr(AttrDirection); ok {
		dir, err := geometry.ParseDirection(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "container %s", id)
		}
		c.direction = dir
	}

	c.box = el
	if !el.HasClass(ClassContainer) {
		c.box = el.First("." + ClassContainer)
	}
	if c.box == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "container %s has no .%s element", id, ClassContainer)
	}
	c.slot = layout.slot(env.Doc, c.box)

	for _, w := range c.slot.Children() {
		if !w.HasClass(ClassContainerItem) {
			continue
		}
		itemEl := w.First("[" + AttrType + "]")
		if itemEl == nil {
			continue
		}
		item, err := r.createItem(itemEl)
		if err != nil {
			env.Logger.Warn("skipping container item", "container", id, "element", dom.Path(itemEl), "err", err)
			continue
		}
		c.items.Put(item.ID(), item)
		c.wrappers[item.ID()] = w
	}

	c.hooks.overlayBox = func(src geometry.Rect, border float64) (geometry.Rect, string) {
		box, margin := geometry.ContainerOverlay(src, border)
		c.margin = margin
		return box, geometry.PositionAbsolute
	}
	c.hooks.onRender = func() {
		c.items.Each(func(_ string, item *Item) { item.Render(c) })
		c.checkEmpty()
		c.previousOrder = c.items.KeySet()
		c.Sync()
	}
	c.hooks.onDestroy = func() {
		c.items.Each(func(_ string, item *Item) { item.Destroy() })
		c.removePlaceholder()
	}
	return c, nil
}

// Render renders the container and its items. When parent is a Host it
// receives the container's drag notifications.
func (c *Container) Render(parent Parent) {
	if h, ok := parent.(Host); ok {
		c.host = h
	}
	c.node.Render(parent)
}

// OverlaySurface implements Parent: item overlays live inside the
// container overlay.
func (c *Container) OverlaySurface() *dom.Element { return c.overlay }

// Layout returns the container's layout.
func (c *Container) Layout() Layout { return c.layout }

// Direction returns the main axis of the container.
func (c *Container) Direction() geometry.Direction { return c.direction }

// Phase returns the drag phase.
func (c *Container) Phase() Phase { return c.phase }

// State returns the current drag flags.
func (c *Container) State() DragState { return c.state }

// Margin returns the overlay border children compensate for.
func (c *Container) Margin() float64 { return c.margin }

// Items returns the items in order.
func (c *Container) Items() []*Item { return c.items.Values() }

// Order returns the item ids in order.
func (c *Container) Order() []string { return c.items.KeySet() }

// HasItem reports whether the container holds id.
func (c *Container) HasItem(id string) bool { return c.items.ContainsKey(id) }

// Item returns the item with id.
func (c *Container) Item(id string) (*Item, error) { return c.items.Get(id) }

// Empty reports whether the container shows the empty placeholder.
func (c *Container) Empty() bool { return c.element.HasClass(ClassEmptyContainer) }

// Sync repositions the container overlay and all item overlays.
func (c *Container) Sync() {
	c.syncOverlay()
	c.items.Each(func(_ string, item *Item) { item.Sync() })
}

// ToggleNoHover flips hover suppression for the container and its items.
func (c *Container) ToggleNoHover() {
	c.node.ToggleNoHover()
	c.items.Each(func(_ string, item *Item) { item.ToggleNoHover() })
}

// BeforeDrag suppresses hover for the duration of a gesture.
func (c *Container) BeforeDrag() {
	c.setNoHover(true)
	c.items.Each(func(_ string, item *Item) { item.setNoHover(true) })
}

// AfterDrag restores hover and drops cached indicator geometry.
func (c *Container) AfterDrag() {
	c.setNoHover(false)
	c.items.Each(func(_ string, item *Item) { item.setNoHover(false) })
	c.draw.Reset()
}

// Highlight marks the container overlay as a drop target.
func (c *Container) Highlight() {
	if c.overlay != nil {
		c.overlay.AddClass(ClassHighlight)
	}
}

// Unhighlight clears the drop target mark.
func (c *Container) Unhighlight() {
	if c.overlay != nil {
		c.overlay.RemoveClass(ClassHighlight)
	}
}

// UpdateSharedData refreshes item labels from f.
func (c *Container) UpdateSharedData(f NameFacade) {
	c.items.Each(func(_ string, item *Item) { item.UpdateSharedData(f) })
}

// Add wraps el, inserts it at index (negative appends) and renders it. The
// element must carry an item type tag.
func (c *Container) Add(el *dom.Element, index int) (*Item, error) {
	item, err := c.registry.createItem(el)
	if err != nil {
		return nil, err
	}
	id := item.ID()
	if index < 0 {
		index = c.items.Len()
	}
	c.items.Insert(id, item, index)

	w := c.layout.wrap(c.env.Doc, el, ClassContainerItem)
	if old, ok := c.wrappers[id]; ok {
		old.Remove()
	}
	c.slot.InsertBefore(w, c.wrapperAfter(id))
	c.wrappers[id] = w

	if c.rendered {
		item.Render(c)
	}
	c.state.CheckEmpty = true
	c.state.OrderChanged = true
	c.state.ItemsUpToDate = true
	return item, nil
}

// wrapperAfter returns the live wrapper of the item following id in model
// order, or nil.
func (c *Container) wrapperAfter(id string) *dom.Element {
	keys := c.items.KeySet()
	for i := c.items.IndexOf(id) + 1; i < len(keys); i++ {
		if w, ok := c.wrappers[keys[i]]; ok && w.Parent().Equal(c.slot) {
			return w
		}
	}
	return nil
}

// RemoveItem removes id and its wrapper. Unless quiet, the item is
// destroyed too. It returns false when the container does not hold id.
func (c *Container) RemoveItem(id string, quiet bool) bool {
	item, err := c.items.Remove(id)
	if err != nil {
		c.env.Logger.Debug("remove item", "container", c.id, "err", err)
		return false
	}
	if w, ok := c.wrappers[id]; ok {
		w.Remove()
		delete(c.wrappers, id)
	}
	if !quiet {
		item.Destroy()
	}
	c.state.CheckEmpty = true
	c.state.OrderChanged = true
	return true
}

// checkEmpty keeps exactly one placeholder wrapper in an empty container
// so it stays a drop target.
func (c *Container) checkEmpty() {
	if c.items.Len() == 0 {
		if c.element.HasClass(ClassEmptyContainer) {
			return
		}
		c.element.AddClass(ClassEmptyContainer)
		if c.overlay != nil {
			c.overlay.AddClass(ClassEmptyContainer)
		}
		ph := c.env.Doc.CreateElement("div")
		ph.AddClass(ClassEmptyPlaceholder)
		ph.SetText(emptyText)
		c.slot.AppendChild(c.layout.wrap(c.env.Doc, ph, ClassEmptyItem))
		return
	}
	c.removePlaceholder()
}

func (c *Container) removePlaceholder() {
	if !c.element.HasClass(ClassEmptyContainer) {
		return
	}
	c.element.RemoveClass(ClassEmptyContainer)
	if c.overlay != nil {
		c.overlay.RemoveClass(ClassEmptyContainer)
	}
	for _, w := range c.slot.Children() {
		if w.HasClass(ClassEmptyItem) {
			w.Remove()
		}
	}
}

// CheckState reconciles the container after a gesture or a mutation.
func (c *Container) CheckState() {
	c.phase = PhaseReconciling
	defer func() {
		c.state.Reset()
		c.phase = PhaseIdle
	}()

	if c.state.CheckEmpty {
		c.checkEmpty()
	}
	if c.state.OrderChanged {
		if c.state.ItemsUpToDate || !c.syncItemsWithOverlayOrder() {
			c.syncOverlaysWithItemOrder()
		}
		c.syncWrappersWithItemOrder()
	}

	order := c.items.KeySet()
	if orderedmap.OrderChanged(c.previousOrder, order) {
		c.env.send(channel.TagRearrange, channel.RearrangePayload{ID: c.id, Children: order})
		c.host.RequestSync()
	}
	c.previousOrder = order
}

// overlayOrder returns the item ids in overlay DOM order.
func (c *Container) overlayOrder() []string {
	if c.overlay == nil {
		return nil
	}
	var order []string
	for _, el := range c.overlay.Children() {
		if el.HasClass(ClassOverlayItem) {
			order = append(order, el.AttrOr(AttrID, ""))
		}
	}
	return order
}

// syncItemsWithOverlayOrder makes the overlay order authoritative. It
// reports false when overlays and model disagree on membership.
func (c *Container) syncItemsWithOverlayOrder() bool {
	if _, err := c.items.UpdateOrder(c.overlayOrder()); err != nil {
		c.env.Logger.Warn("overlay order out of sync", "container", c.id, "err", err)
		return false
	}
	return true
}

func (c *Container) syncOverlaysWithItemOrder() {
	if c.overlay == nil {
		return
	}
	c.items.Each(func(_ string, item *Item) {
		if ov := item.Overlay(); ov != nil {
			c.overlay.AppendChild(ov)
		}
	})
}

func (c *Container) syncWrappersWithItemOrder() {
	c.items.Each(func(id string, _ *Item) {
		if w, ok := c.wrappers[id]; ok {
			c.slot.AppendChild(w)
		}
	})
}

// DrawDropIndicator positions indicator for placement p inside c.
func (c *Container) DrawDropIndicator(p dnd.Placement, indicator *dom.Element) error {
	var ind geometry.Indicator
	switch {
	case p.Siblings == 0:
		src, err := c.env.Layout.Box(c.element)
		if err != nil {
			return err
		}
		ind = c.draw.Inside(c.id, src, c.direction)
	case p.Prev.Equal(p.Item) || (p.Next != nil && p.Next.Equal(p.Item)):
		id, src, err := c.sourceBox(p.Item)
		if err != nil {
			return err
		}
		ind = c.draw.Inside(id, src, c.direction)
	case p.Prev == nil:
		id, src, err := c.sourceBox(p.Next)
		if err != nil {
			return err
		}
		ind = c.draw.Before(id, src, c.direction)
	case p.Next == nil:
		id, src, err := c.sourceBox(p.Prev)
		if err != nil {
			return err
		}
		ind = c.draw.After(id, src, c.direction)
	default:
		id, prev, err := c.sourceBox(p.Prev)
		if err != nil {
			return err
		}
		_, next, err := c.sourceBox(p.Next)
		if err != nil {
			return err
		}
		ind = c.draw.Between(id, prev, next, c.direction)
	}
	dom.ApplyBox(indicator, ind.Rect, ind.Position)
	indicator.Show()
	return nil
}

// sourceBox resolves an item overlay to its widget's live element box.
func (c *Container) sourceBox(ov *dom.Element) (string, geometry.Rect, error) {
	if ov == nil {
		return "", geometry.Rect{}, errors.New(errors.ErrCodeInvalidInput, "missing placement neighbour")
	}
	id := ov.AttrOr(AttrID, "")
	w, err := c.registry.GetByID(id)
	if err != nil {
		return "", geometry.Rect{}, err
	}
	box, err := c.env.Layout.Box(w.Element())
	return id, box, err
}

func (c *Container) dragging() {
	if c.phase == PhaseIdle {
		c.phase = PhaseDragging
	}
}

// DragStart implements dnd.List.
func (c *Container) DragStart(ev dnd.Event) error {
	c.phase = PhaseDragging
	item, err := c.items.Get(ev.ItemID)
	if err != nil {
		return err
	}
	c.host.OnDragStart(item, c)
	item.OnDragStart()
	return nil
}

// DragChange implements dnd.List.
func (c *Container) DragChange(ev dnd.Event) error {
	c.dragging()
	c.host.OnDrag(ev.Placement, c)
	return nil
}

// DragUpdate implements dnd.List.
func (c *Container) DragUpdate(dnd.Event) error {
	c.dragging()
	c.state.OrderChanged = true
	return nil
}

// DragReceive implements dnd.List. It runs independently of the source's
// start/stop pair: the item is taken from the registry, its old overlay is
// destroyed and it is added again at the index its overlay was dropped at.
func (c *Container) DragReceive(ev dnd.Event) error {
	c.dragging()
	w, err := c.registry.GetByID(ev.ItemID)
	if err != nil {
		return err
	}
	item, ok := w.(*Item)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "%s is not an item", ev.ItemID)
	}
	index := ev.Index
	for i, id := range c.overlayOrder() {
		if id == ev.ItemID {
			index = i
			break
		}
	}
	item.OnDragStop()
	item.Destroy()
	if _, err := c.Add(item.Element(), index); err != nil {
		return err
	}
	c.state.ItemsUpToDate = true
	return nil
}

// DragRemove implements dnd.List. The item now belongs to another
// container and is not destroyed.
func (c *Container) DragRemove(ev dnd.Event) error {
	c.dragging()
	c.RemoveItem(ev.ItemID, true)
	return nil
}

// DragStop implements dnd.List.
func (c *Container) DragStop(ev dnd.Event) error {
	if item, ok := c.items.Lookup(ev.ItemID); ok {
		item.OnDragStop()
	}
	c.host.OnDragStop(ev.ItemID)
	c.host.CheckStateChanges()
	return nil
}
