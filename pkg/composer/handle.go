package composer

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/observability"
	"github.com/matzehuels/pagecomposer/pkg/widget"
)

// TemporaryPrefix starts the ids of items awaiting a backend identity.
const TemporaryPrefix = "tmp-"

// NewTemporaryID returns a fresh id for a temporary item.
func NewTemporaryID() string {
	return TemporaryPrefix + strings.ToLower(ulid.Make().String())
}

func (e *Engine) routes() {
	d := e.dispatcher
	d.Handle(channel.TagSelect, e.withID(e.Select))
	d.Handle(channel.TagDeselect, e.withID(e.Deselect))
	d.Handle(channel.TagToggle, e.withID(e.Toggle))
	d.Handle(channel.TagHighlight, e.withID(func(id string) error {
		c, err := e.Container(id)
		if err != nil {
			return err
		}
		c.Highlight()
		return nil
	}))
	d.Handle(channel.TagUnhighlight, e.withID(func(id string) error {
		c, err := e.Container(id)
		if err != nil {
			return err
		}
		c.Unhighlight()
		return nil
	}))
	d.Handle(channel.TagRemove, e.withID(e.RemoveItem))
	d.Handle(channel.TagResize, func(channel.Message) error {
		e.Sync()
		return nil
	})
	d.Handle(channel.TagShareData, func(m channel.Message) error {
		var p channel.ShareDataPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "sharedata")
		}
		e.ShareData(widget.NameMap(p.Names))
		return nil
	})
	d.Handle(channel.TagAdd, func(m channel.Message) error {
		var p channel.AddPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "add")
		}
		_, err := e.Add(p.Container, p.HTML, p.Index)
		return err
	})
	d.Handle(channel.TagDrag, func(m channel.Message) error {
		var p channel.DragPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "drag")
		}
		if p.ID == "" || p.Container == "" {
			return errors.New(errors.ErrCodeRequired, "drag: id and container are required")
		}
		return e.Drag(p.ID, p.Container, p.Index)
	})
	d.Handle(channel.TagInit, func(channel.Message) error { return e.Init() })
	d.Handle(channel.TagReload, func(channel.Message) error { return e.Reload() })
	d.Handle(channel.TagTeardown, func(channel.Message) error {
		e.Teardown()
		return nil
	})
}

func (e *Engine) withID(fn func(id string) error) channel.HandlerFunc {
	return func(m channel.Message) error {
		var p channel.IDPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", m.Tag)
		}
		if p.ID == "" {
			return errors.New(errors.ErrCodeRequired, "%s: id is required", m.Tag)
		}
		return fn(p.ID)
	}
}

// Handle applies an inbound message. It runs on the loop.
func (e *Engine) Handle(m channel.Message) error {
	observability.Engine().OnMessage(e.ctx, string(m.Tag))
	e.logger.Debug("inbound", "tag", m.Tag)
	err := e.dispatcher.Dispatch(m)
	if err != nil {
		observability.Engine().OnDispatchError(e.ctx, string(m.Tag), err)
	}
	e.flushSync()
	return err
}

// Select marks id selected, deselecting the previous selection.
func (e *Engine) Select(id string) error {
	w, err := e.registry.GetByID(id)
	if err != nil {
		return err
	}
	if e.selected != "" && e.selected != id {
		if prev, err := e.registry.GetByID(e.selected); err == nil {
			prev.Deselect()
		}
	}
	w.Select()
	e.selected = id
	return nil
}

// Deselect clears the selection of id.
func (e *Engine) Deselect(id string) error {
	w, err := e.registry.GetByID(id)
	if err != nil {
		return err
	}
	w.Deselect()
	if e.selected == id {
		e.selected = ""
	}
	return nil
}

// Toggle flips the selection of id.
func (e *Engine) Toggle(id string) error {
	if e.selected == id {
		return e.Deselect(id)
	}
	return e.Select(id)
}

// ShareData stores the name facade and relabels every item.
func (e *Engine) ShareData(names widget.NameFacade) {
	e.names = names
	e.shareNames()
}

func (e *Engine) shareNames() {
	for _, c := range e.Containers() {
		c.UpdateSharedData(e.names)
	}
}

// Add parses html and inserts its first element into container at index.
// Markup without an id becomes a temporary item.
func (e *Engine) Add(container, html string, index int) (*widget.Item, error) {
	c, err := e.Container(container)
	if err != nil {
		return nil, err
	}
	els, err := e.doc.Fragment(html)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "add to %s", container)
	}
	if len(els) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "add to %s: no element in markup", container)
	}
	el := els[0]
	if _, ok := el.Attr(widget.AttrType); !ok {
		el.SetAttr(widget.AttrType, widget.TagItem)
	}
	if widget.WidgetID(el) == "" {
		el.SetAttr(widget.AttrID, NewTemporaryID())
		el.SetAttr(widget.AttrTemporary, "true")
	}
	item, err := c.Add(el, index)
	if err != nil {
		return nil, err
	}
	if e.names != nil {
		item.UpdateSharedData(e.names)
	}
	c.CheckState()
	return item, nil
}

// AddTemporary inserts a placeholder item awaiting a backend identity.
func (e *Engine) AddTemporary(container string, index int) (*widget.Item, error) {
	return e.Add(container, `<div></div>`, index)
}

// RemoveItem deletes item id from its container, as after a confirmed
// delete.
func (e *Engine) RemoveItem(id string) error {
	c, err := e.Owner(id)
	if err != nil {
		return err
	}
	c.RemoveItem(id, false)
	e.registry.Forget(id)
	if e.selected == id {
		e.selected = ""
	}
	c.CheckState()
	return nil
}
