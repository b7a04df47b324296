// Package dnd is a headless drag-and-drop surface over connected sortable
// lists.
//
// Each [List] owns an overlay element whose children carrying [ItemClass]
// are its sortable items. [Surface.Move] replays a complete gesture: it
// fires start on the source, change on the target with the placeholder
// [Placement], moves the dragged overlay in the overlay DOM, then fires
// update (same list) or receive/remove/update/update (across lists) and
// finally stop on the source. Handler failures are recovered per event so
// one broken handler never leaves the page in a stuck drag.
package dnd

import (
	stderrors "errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/orderedmap"
)

// ItemClass marks sortable children of a list overlay.
const ItemClass = "hst-overlay-container-item"

// IDAttr holds the widget id on overlay elements.
const IDAttr = "data-hst-id"

// Event names, as reported to the error sink.
const (
	EventStart   = "start"
	EventChange  = "change"
	EventUpdate  = "update"
	EventReceive = "receive"
	EventRemove  = "remove"
	EventStop    = "stop"
)

// Placement describes the neighbourhood of the drop placeholder. Prev and
// Next are overlay elements (nil at an edge); when the drop lands on the
// dragged item's own position one of them is Item itself.
type Placement struct {
	Item     *dom.Element
	Prev     *dom.Element
	Next     *dom.Element
	Siblings int
}

// Event is passed to every list handler of a gesture.
type Event struct {
	ItemID    string
	Item      *dom.Element // dragged overlay
	From      string       // source list id
	To        string       // target list id
	Index     int          // final index in the target list
	Placement Placement
}

// List is a sortable list taking part in a surface.
type List interface {
	ID() string
	Overlay() *dom.Element

	DragStart(ev Event) error
	DragChange(ev Event) error
	DragUpdate(ev Event) error
	DragReceive(ev Event) error
	DragRemove(ev Event) error
	DragStop(ev Event) error
}

// ErrorSink receives recovered handler failures.
type ErrorSink func(event, listID string, err error)

// Option configures a Surface.
type Option func(*Surface)

// WithErrorSink sets the sink for handler failures.
func WithErrorSink(sink ErrorSink) Option {
	return func(s *Surface) { s.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRemoveFirst fires remove on the source before receive on the target
// for cross-list moves.
func WithRemoveFirst(on bool) Option {
	return func(s *Surface) { s.removeFirst = on }
}

// Surface connects lists so items can be dragged between them.
type Surface struct {
	lists       *orderedmap.Map[string, List]
	sink        ErrorSink
	logger      *log.Logger
	removeFirst bool
}

// NewSurface returns an empty surface.
func NewSurface(opts ...Option) *Surface {
	s := &Surface{
		lists:  orderedmap.New[string, List](),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect adds a list. Connecting an id again replaces the list in place.
func (s *Surface) Connect(l List) {
	s.lists.Put(l.ID(), l)
}

// Disconnect removes a list and reports whether it was connected.
func (s *Surface) Disconnect(id string) bool {
	_, err := s.lists.Remove(id)
	return err == nil
}

// Lists returns the connected lists in connection order.
func (s *Surface) Lists() []List { return s.lists.Values() }

// Items returns the sortable overlay children of l.
func Items(l List) []*dom.Element {
	ov := l.Overlay()
	if ov == nil {
		return nil
	}
	var out []*dom.Element
	for _, c := range ov.Children() {
		if c.HasClass(ItemClass) {
			out = append(out, c)
		}
	}
	return out
}

// Owner returns the list whose overlay holds the item overlay for itemID,
// the overlay itself, and its index.
func (s *Surface) Owner(itemID string) (List, *dom.Element, int, bool) {
	for _, l := range s.lists.Values() {
		for i, el := range Items(l) {
			if el.AttrOr(IDAttr, "") == itemID {
				return l, el, i, true
			}
		}
	}
	return nil, nil, -1, false
}

// Move drags itemID into list to at index and replays the gesture. It
// returns an error for an unknown item or list, and otherwise the joined
// handler failures after the gesture has completed.
func (s *Surface) Move(itemID, to string, index int) error {
	src, item, from, ok := s.Owner(itemID)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no draggable item %q", itemID)
	}
	dst, ok := s.lists.Lookup(to)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no list %q", to)
	}
	same := src.ID() == dst.ID()

	var others []*dom.Element
	for _, el := range Items(dst) {
		if !el.Equal(item) {
			others = append(others, el)
		}
	}
	index = max(0, min(index, len(others)))

	p := Placement{Item: item, Siblings: len(others)}
	if same {
		p.Siblings++
	}
	if same && index == from {
		p.Prev = item
	} else {
		if index > 0 {
			p.Prev = others[index-1]
		}
		if index < len(others) {
			p.Next = others[index]
		}
	}

	ev := Event{ItemID: itemID, Item: item, From: src.ID(), To: dst.ID(), Index: index, Placement: p}
	s.logger.Debug("drag", "item", itemID, "from", ev.From, "to", ev.To, "index", index)

	var errs []error
	fire := func(name string, l List, h func(Event) error) {
		if err := s.fire(name, l, h, ev); err != nil {
			errs = append(errs, err)
		}
	}

	fire(EventStart, src, src.DragStart)
	fire(EventChange, dst, dst.DragChange)

	var ref *dom.Element
	if index < len(others) {
		ref = others[index]
	}
	dst.Overlay().InsertBefore(item, ref)

	switch {
	case same && index != from:
		fire(EventUpdate, src, src.DragUpdate)
	case !same && s.removeFirst:
		fire(EventRemove, src, src.DragRemove)
		fire(EventReceive, dst, dst.DragReceive)
		fire(EventUpdate, dst, dst.DragUpdate)
		fire(EventUpdate, src, src.DragUpdate)
	case !same:
		fire(EventReceive, dst, dst.DragReceive)
		fire(EventRemove, src, src.DragRemove)
		fire(EventUpdate, dst, dst.DragUpdate)
		fire(EventUpdate, src, src.DragUpdate)
	}

	fire(EventStop, src, src.DragStop)
	return stderrors.Join(errs...)
}

func (s *Surface) fire(name string, l List, h func(Event) error, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("drag handler panicked", "event", name, "list", l.ID(), "panic", r, "stack", string(debug.Stack()))
			err = errors.New(errors.ErrCodeInternal, "%s handler of %s panicked: %s", name, l.ID(), fmt.Sprint(r))
		}
		if err != nil {
			s.logger.Warn("drag handler failed", "event", name, "list", l.ID(), "err", err)
			if s.sink != nil {
				s.sink(name, l.ID(), err)
			}
		}
	}()
	return h(ev)
}
