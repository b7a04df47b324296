// Package widget implements the overlay widgets of the page composer.
//
// Every structural element of the embedded page (a container or a container
// item) gets a [Widget]: an absolutely positioned overlay element mirroring
// the live element's box, which makes the component selectable and
// draggable without touching the live markup. Containers keep their items in
// an ordered map whose key order is the visual order, and reconcile it with
// the overlay and live DOM after every drag gesture ([Container.CheckState]).
//
// Widgets are created through an explicit [Registry], one per editing
// session, keyed by element identity.
package widget

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dnd"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

// Markup attributes.
const (
	AttrID        = "data-hst-id"
	AttrType      = "data-hst-type"
	AttrTemporary = "data-hst-temporary"
	AttrDirection = "data-hst-direction"
)

// CSS classes.
const (
	ClassOverlay          = "hst-overlay"
	ClassHover            = "hst-overlay-hover"
	ClassSelected         = "hst-selected"
	ClassActivated        = "hst-activated"
	ClassHighlight        = "hst-highlight"
	ClassOverlayContainer = "hst-overlay-container"
	ClassOverlayItem      = "hst-overlay-container-item"
	ClassContainer        = "hst-container"
	ClassContainerItem    = "hst-container-item"
	ClassEmptyContainer   = "hst-empty-container"
	ClassEmptyItem        = "hst-empty-container-item"
	ClassEmptyPlaceholder = "empty-container-placeholder"
	ClassItemOnDrag       = "hst-item-ondrag"
	ClassBackground       = "hst-overlay-background"
	ClassMenu             = "hst-overlay-menu"
	ClassMenuButton       = "hst-overlay-menu-button"
	ClassNameLabel        = "hst-overlay-name-label"
)

// Kind distinguishes the widget variants.
type Kind string

const (
	KindContainer Kind = "container"
	KindItem      Kind = "item"
)

// Widget is the capability set shared by containers and items.
type Widget interface {
	ID() string
	Kind() Kind
	Element() *dom.Element
	Overlay() *dom.Element
	Rendered() bool

	Render(parent Parent)
	Sync()
	Destroy()

	Select()
	Deselect()
	Selected() bool
	Activate()
	Deactivate()
	ToggleNoHover()
}

// Parent receives a widget's overlay.
type Parent interface {
	// OverlaySurface returns the element overlays are appended to, or nil
	// for the document body.
	OverlaySurface() *dom.Element
}

// Host is the parent of top-level containers. It coordinates gestures that
// span containers.
type Host interface {
	Parent
	OnDragStart(item *Item, from *Container)
	OnDrag(p dnd.Placement, over *Container)
	OnDragStop(itemID string)
	CheckStateChanges()
	RequestSync()
}

// NameFacade resolves display names of components.
type NameFacade interface {
	GetName(id string) (string, bool)
}

// NameMap is a NameFacade backed by a map.
type NameMap map[string]string

// GetName implements NameFacade.
func (m NameMap) GetName(id string) (string, bool) {
	name, ok := m[id]
	return name, ok
}

// Env is shared by all widgets of one registry.
type Env struct {
	Doc       *dom.Document
	Layout    dom.Layout
	Sender    channel.Sender
	Logger    *log.Logger
	Indicator geometry.Config
}

func (e *Env) normalize() {
	if e.Layout == nil {
		e.Layout = dom.AttrLayout{}
	}
	if e.Logger == nil {
		e.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if e.Indicator == (geometry.Config{}) {
		e.Indicator = geometry.DefaultConfig()
	}
}

func (e *Env) send(tag channel.Tag, payload any) {
	if e.Sender == nil {
		return
	}
	m, err := channel.NewMessage(tag, payload)
	if err != nil {
		e.Logger.Error("encode message", "tag", tag, "err", err)
		return
	}
	if err := e.Sender.Send(context.Background(), m); err != nil {
		e.Logger.Warn("send message", "tag", tag, "err", err)
	}
}

// WidgetID returns the id of a structural element: its data-hst-id, or
// its id attribute.
func WidgetID(el *dom.Element) string {
	if id, ok := el.Attr(AttrID); ok && id != "" {
		return id
	}
	return el.ID()
}

type nopHost struct{}

func (nopHost) OverlaySurface() *dom.Element     { return nil }
func (nopHost) OnDragStart(*Item, *Container)    {}
func (nopHost) OnDrag(dnd.Placement, *Container) {}
func (nopHost) OnDragStop(string)                {}
func (nopHost) CheckStateChanges()               {}
func (nopHost) RequestSync()                     {}
