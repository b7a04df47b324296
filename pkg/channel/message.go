// Package channel carries tagged JSON messages between the embedded editing
// engine and its host.
//
// Messages are a [Tag] plus a JSON payload. The engine emits onappload,
// onclick, remove, rearrange, refresh and error; the host sends selection,
// highlight, resize, sharedata, add, remove, drag, init, reload and
// teardown. A [Channel] moves them in both directions: [Pipe] connects two
// in-process ends, [WebSocket] runs over gorilla/websocket, and [Recorder]
// captures outbound traffic in tests.
package channel

import (
	"encoding/json"
	"fmt"
)

// Tag names a message kind.
type Tag string

// Outbound tags (engine to host).
const (
	TagOnClick   Tag = "onclick"
	TagRemove    Tag = "remove" // also inbound, with an IDPayload
	TagRearrange Tag = "rearrange"
	TagRefresh   Tag = "refresh"
	TagError     Tag = "error"
	TagAppLoaded Tag = "onappload"
)

// Inbound tags (host to engine).
const (
	TagSelect      Tag = "select"
	TagDeselect    Tag = "deselect"
	TagToggle      Tag = "toggle"
	TagHighlight   Tag = "highlight"
	TagUnhighlight Tag = "unhighlight"
	TagResize      Tag = "resize"
	TagShareData   Tag = "sharedata"
	TagAdd         Tag = "add"
	TagDrag        Tag = "drag"
	TagInit        Tag = "init"
	TagReload      Tag = "reload"
	TagTeardown    Tag = "teardown"
)

// Message is a tagged payload.
type Message struct {
	Tag     Tag             `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes v as the payload of a message. A nil v yields "{}".
func NewMessage(tag Tag, v any) (Message, error) {
	if v == nil {
		return Message{Tag: tag, Payload: json.RawMessage("{}")}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", tag, err)
	}
	return Message{Tag: tag, Payload: data}, nil
}

// MustMessage is NewMessage for payload types that cannot fail to encode.
func MustMessage(tag Tag, v any) Message {
	m, err := NewMessage(tag, v)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Tag, err)
	}
	return nil
}

func (m Message) String() string {
	if len(m.Payload) == 0 {
		return string(m.Tag)
	}
	return string(m.Tag) + " " + string(m.Payload)
}

// ElementPayload references a page element by id (onclick, outbound remove).
type ElementPayload struct {
	Element string `json:"element"`
}

// RearrangePayload reports a container's new child order.
type RearrangePayload struct {
	ID       string   `json:"id"`
	Children []string `json:"children"`
}

// ErrorPayload reports a failure caught at the dispatch boundary.
type ErrorPayload struct {
	Message string `json:"message"`
}

// IDPayload addresses a widget by id (select, deselect, toggle, highlight,
// unhighlight, inbound remove).
type IDPayload struct {
	ID string `json:"id"`
}

// ShareDataPayload carries display names keyed by component id.
type ShareDataPayload struct {
	Names map[string]string `json:"names"`
}

// AddPayload inserts new component markup into a container.
type AddPayload struct {
	Container string `json:"container"`
	HTML      string `json:"html"`
	Index     int    `json:"index"`
}

// DragPayload moves an item into a container at an index, as one gesture.
type DragPayload struct {
	ID        string `json:"id"`
	Container string `json:"container"`
	Index     int    `json:"index"`
}

// AppLoadedPayload identifies the page once the engine is initialized.
type AppLoadedPayload struct {
	SiteID    string `json:"siteIdentifier"`
	ToolkitID string `json:"toolkitIdentifier,omitempty"`
	RootID    string `json:"rootComponentIdentifier"`
}
