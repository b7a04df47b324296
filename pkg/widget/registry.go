package widget

import (
	"golang.org/x/net/html"

	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/orderedmap"
)

// Default type tags.
const (
	TagTable         = "HST.Table"
	TagOrderedList   = "HST.OrderedList"
	TagUnorderedList = "HST.UnorderedList"
	TagVBox          = "HST.vBox"
	TagSpan          = "HST.Span"
	TagBaseContainer = "HST.BaseContainer"
	TagItem          = "HST.Item"
)

// Constructor builds a widget for an element.
type Constructor func(r *Registry, id string, el *dom.Element) (Widget, error)

// Registry creates widgets from type tags and keeps one live widget per
// element. It is not safe for concurrent use; all calls happen on the
// engine loop.
type Registry struct {
	env    *Env
	ctors  map[string]Constructor
	byNode map[*html.Node]Widget
	byID   *orderedmap.Map[string, Widget]
}

// NewRegistry returns an empty registry for env.
func NewRegistry(env *Env) *Registry {
	env.normalize()
	return &Registry{
		env:    env,
		ctors:  make(map[string]Constructor),
		byNode: make(map[*html.Node]Widget),
		byID:   orderedmap.New[string, Widget](),
	}
}

// NewDefaultRegistry returns a registry with RegisterDefaults applied.
func NewDefaultRegistry(env *Env) *Registry {
	r := NewRegistry(env)
	RegisterDefaults(r)
	return r
}

// RegisterDefaults registers the built-in container layouts and the item
// constructor.
func RegisterDefaults(r *Registry) {
	r.Register(TagTable, NewContainer(TableLayout))
	r.Register(TagOrderedList, NewContainer(OrderedListLayout))
	r.Register(TagUnorderedList, NewContainer(UnorderedListLayout))
	r.Register(TagVBox, NewContainer(BoxLayout))
	r.Register(TagSpan, NewContainer(SpanLayout))
	r.Register(TagBaseContainer, NewContainer(BoxLayout))
	r.Register(TagItem, NewItem)
}

// Env returns the shared widget environment.
func (r *Registry) Env() *Env { return r.env }

// Register associates tag with ctor. The last registration wins.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.ctors[tag] = ctor
}

// Registered reports whether tag has a constructor.
func (r *Registry) Registered(tag string) bool {
	_, ok := r.ctors[tag]
	return ok
}

// CreateOrRetrieve returns the live widget for el, constructing it from
// el's type tag on first use.
func (r *Registry) CreateOrRetrieve(el *dom.Element) (Widget, error) {
	if w, ok := r.byNode[el.Node()]; ok {
		return w, nil
	}
	tag, _ := el.Attr(AttrType)
	ctor, ok := r.ctors[tag]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownTypeTag, "no widget registered for type %q on %s", tag, dom.Path(el))
	}
	id := WidgetID(el)
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "element %s has no id", dom.Path(el))
	}
	w, err := ctor(r, id, el)
	if err != nil {
		return nil, err
	}
	r.byNode[el.Node()] = w
	r.byID.Put(id, w)
	return w, nil
}

func (r *Registry) createItem(el *dom.Element) (*Item, error) {
	w, err := r.CreateOrRetrieve(el)
	if err != nil {
		return nil, err
	}
	item, ok := w.(*Item)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is a %s, not an item", w.ID(), w.Kind())
	}
	return item, nil
}

// GetByID returns the widget with id or a NOT_FOUND error.
func (r *Registry) GetByID(id string) (Widget, error) {
	w, ok := r.byID.Lookup(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no widget with id %q", id)
	}
	return w, nil
}

// Forget drops the widget with id and reports whether it was known.
func (r *Registry) Forget(id string) bool {
	w, err := r.byID.Remove(id)
	if err != nil {
		return false
	}
	delete(r.byNode, w.Element().Node())
	return true
}

// Widgets returns all live widgets in creation order.
func (r *Registry) Widgets() []Widget { return r.byID.Values() }

// Containers returns all containers in creation order.
func (r *Registry) Containers() []*Container {
	var out []*Container
	r.byID.Each(func(_ string, w Widget) {
		if c, ok := w.(*Container); ok {
			out = append(out, c)
		}
	})
	return out
}

// Len returns the number of live widgets.
func (r *Registry) Len() int { return r.byID.Len() }
