package dom

import "golang.org/x/net/html"

// Common event types.
const (
	EventClick     = "click"
	EventMouseOver = "mouseover"
	EventMouseOut  = "mouseout"
)

// Event is a dispatched DOM event.
type Event struct {
	Type    string
	Target  *Element // element the event was dispatched on
	Current *Element // element whose handler is running

	stopped bool
}

// StopPropagation prevents the event from bubbling to further ancestors.
// Remaining handlers on the current element still run.
func (ev *Event) StopPropagation() { ev.stopped = true }

// Stopped reports whether StopPropagation was called.
func (ev *Event) Stopped() bool { return ev.stopped }

// Handler handles an event.
type Handler func(ev *Event)

// On registers a handler for events of type typ on el.
func (d *Document) On(el *Element, typ string, h Handler) {
	byType := d.handlers[el.node]
	if byType == nil {
		byType = make(map[string][]Handler)
		d.handlers[el.node] = byType
	}
	byType[typ] = append(byType[typ], h)
}

// Off removes every handler registered on el.
func (d *Document) Off(el *Element) {
	delete(d.handlers, el.node)
}

func (d *Document) offTree(n *html.Node) {
	delete(d.handlers, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.offTree(c)
	}
}

// Dispatch fires an event of type typ at el and bubbles it through the
// ancestors until a handler stops propagation. It returns the event.
func (d *Document) Dispatch(el *Element, typ string) *Event {
	ev := &Event{Type: typ, Target: el}
	for n := el.node; n != nil; n = n.Parent {
		hs := d.handlers[n][typ]
		if len(hs) == 0 {
			continue
		}
		ev.Current = d.wrap(n)
		for _, h := range append([]Handler(nil), hs...) {
			h(ev)
		}
		if ev.stopped {
			break
		}
	}
	return ev
}

// HandlerCount returns the number of handlers registered on el.
func (d *Document) HandlerCount(el *Element) int {
	n := 0
	for _, hs := range d.handlers[el.node] {
		n += len(hs)
	}
	return n
}
