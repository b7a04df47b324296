package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// Repository implements the page composer operations over a Backend.
// Writes are serialized; reads run concurrently with each other.
type Repository struct {
	backend Backend
	logger  *log.Logger
	mu      sync.RWMutex
}

// NewRepository wraps b. A nil logger discards output.
func NewRepository(b Backend, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Repository{backend: b, logger: logger}
}

// Backend returns the underlying backend.
func (r *Repository) Backend() Backend { return r.backend }

// Close closes the backend.
func (r *Repository) Close() error { return r.backend.Close() }

func (r *Repository) get(ctx context.Context, kind Kind, id string, v any) error {
	data, err := r.backend.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}
	return nil
}

func (r *Repository) put(ctx context.Context, kind Kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	return r.backend.Put(ctx, kind, id, data)
}

// =============================================================================
// Pages and components
// =============================================================================

// Page returns a page record.
func (r *Repository) Page(ctx context.Context, id string) (pagemodel.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var p pagemodel.Page
	err := r.get(ctx, KindPage, id, &p)
	return p, err
}

// Pages returns all page records ordered by id.
func (r *Repository) Pages(ctx context.Context) ([]pagemodel.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids, err := r.backend.List(ctx, KindPage)
	if err != nil {
		return nil, err
	}
	pages := make([]pagemodel.Page, 0, len(ids))
	for _, id := range ids {
		var p pagemodel.Page
		if err := r.get(ctx, KindPage, id, &p); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// PutPage stores a page record.
func (r *Repository) PutPage(ctx context.Context, p pagemodel.Page) error {
	if p.ID == "" {
		return errors.New(errors.ErrCodeRequired, "page without id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(ctx, KindPage, p.ID, p)
}

// Component returns a component record.
func (r *Repository) Component(ctx context.Context, id string) (pagemodel.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.component(ctx, id)
}

func (r *Repository) component(ctx context.Context, id string) (pagemodel.Component, error) {
	var c pagemodel.Component
	if err := r.get(ctx, KindComponent, id, &c); err != nil {
		if IsNotFound(err) {
			return c, errors.Wrap(errors.ErrCodeComponentNotFound, err, "component %q", id)
		}
		return c, err
	}
	return c, nil
}

// PutComponent stores a component record as is.
func (r *Repository) PutComponent(ctx context.Context, c pagemodel.Component) error {
	if c.ID == "" {
		return errors.New(errors.ErrCodeRequired, "component without id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(ctx, KindComponent, c.ID, c)
}

// PageModel returns the components reachable from rootID, depth first with
// each parent before its children. Dangling child references are skipped.
func (r *Repository) PageModel(ctx context.Context, rootID string) ([]pagemodel.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, err := r.component(ctx, rootID)
	if err != nil {
		return nil, err
	}
	var out []pagemodel.Component
	seen := map[string]bool{}
	var walk func(c pagemodel.Component) error
	walk = func(c pagemodel.Component) error {
		if seen[c.ID] {
			return nil
		}
		seen[c.ID] = true
		out = append(out, c)
		for _, id := range c.Children {
			child, err := r.component(ctx, id)
			if errors.Is(err, errors.ErrCodeComponentNotFound) {
				r.logger.Warn("dangling child", "parent", c.ID, "child", id)
				continue
			}
			if err != nil {
				return err
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// Toolkit returns the components of a toolkit.
func (r *Repository) Toolkit(ctx context.Context, id string) ([]pagemodel.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	if err := r.get(ctx, KindToolkit, id, &ids); err != nil {
		return nil, err
	}
	out := make([]pagemodel.Component, 0, len(ids))
	for _, cid := range ids {
		c, err := r.component(ctx, cid)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// PutToolkit stores the component ids of a toolkit.
func (r *Repository) PutToolkit(ctx context.Context, id string, componentIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(ctx, KindToolkit, id, componentIDs)
}

// =============================================================================
// Structural changes
// =============================================================================

// CreateComponent appends a copy of a toolkit component, parameters
// included, to a container and returns the new record.
func (r *Repository) CreateComponent(ctx context.Context, parentID, toolkitItemID string) (pagemodel.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, err := r.container(ctx, parentID)
	if err != nil {
		return pagemodel.Component{}, err
	}
	proto, err := r.component(ctx, toolkitItemID)
	if err != nil {
		return pagemodel.Component{}, err
	}

	c := pagemodel.Component{
		ID:       strings.ToLower(ulid.Make().String()),
		Name:     proto.Name,
		Type:     pagemodel.TypeContainerItem,
		Template: proto.Template,
		ParentID: parentID,
		XType:    proto.XType,
	}
	c.Path = strings.TrimSuffix(parent.Path, "/") + "/" + c.ID

	var props []pagemodel.Property
	if err := r.get(ctx, KindParameters, proto.ID, &props); err != nil && !IsNotFound(err) {
		return pagemodel.Component{}, err
	}
	if len(props) > 0 {
		if err := r.put(ctx, KindParameters, c.ID, props); err != nil {
			return pagemodel.Component{}, err
		}
	}
	if err := r.put(ctx, KindComponent, c.ID, c); err != nil {
		return pagemodel.Component{}, err
	}
	parent.Children = append(parent.Children, c.ID)
	if err := r.put(ctx, KindComponent, parent.ID, parent); err != nil {
		return pagemodel.Component{}, err
	}
	r.logger.Debug("component created", "id", c.ID, "container", parentID, "from", toolkitItemID)
	return c, nil
}

func (r *Repository) container(ctx context.Context, id string) (pagemodel.Component, error) {
	c, err := r.component(ctx, id)
	if err != nil {
		return c, err
	}
	if !c.IsContainer() {
		return c, errors.New(errors.ErrCodeInvalidInput, "component %q is a %s, not a container", id, c.Type)
	}
	return c, nil
}

// UpdateChildren replaces a container's child order. Children that come
// from another container are moved: their old container drops them and
// their parent is updated.
func (r *Repository) UpdateChildren(ctx context.Context, containerID string, children []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, err := r.container(ctx, containerID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(children))
	var moved []pagemodel.Component
	for _, id := range children {
		if seen[id] {
			return errors.New(errors.ErrCodeInvalidOrder, "child %q listed twice", id)
		}
		seen[id] = true
		child, err := r.component(ctx, id)
		if err != nil {
			return err
		}
		if child.ParentID != containerID {
			moved = append(moved, child)
		}
	}

	for _, child := range moved {
		if child.ParentID != "" {
			old, err := r.component(ctx, child.ParentID)
			if err == nil {
				old.Children = slices.DeleteFunc(old.Children, func(id string) bool { return id == child.ID })
				if err := r.put(ctx, KindComponent, old.ID, old); err != nil {
					return err
				}
			}
		}
		child.ParentID = containerID
		if err := r.put(ctx, KindComponent, child.ID, child); err != nil {
			return err
		}
	}

	parent.Children = slices.Clone(children)
	if err := r.put(ctx, KindComponent, parent.ID, parent); err != nil {
		return err
	}
	r.logger.Debug("children updated", "container", containerID, "children", len(children), "moved", len(moved))
	return nil
}

// DeleteComponent removes a component and its descendants from a container.
func (r *Repository) DeleteComponent(ctx context.Context, parentID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, err := r.component(ctx, parentID)
	if err != nil {
		return err
	}
	if !parent.HasChild(id) {
		return errors.New(errors.ErrCodeComponentNotFound, "component %q is not a child of %q", id, parentID)
	}
	parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == id })
	if err := r.put(ctx, KindComponent, parent.ID, parent); err != nil {
		return err
	}
	return r.deleteTree(ctx, id)
}

func (r *Repository) deleteTree(ctx context.Context, id string) error {
	c, err := r.component(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrCodeComponentNotFound) {
			return nil
		}
		return err
	}
	for _, child := range c.Children {
		if err := r.deleteTree(ctx, child); err != nil {
			return err
		}
	}
	if err := r.backend.Delete(ctx, KindParameters, id); err != nil {
		return err
	}
	return r.backend.Delete(ctx, KindComponent, id)
}

// =============================================================================
// Parameters and documents
// =============================================================================

// Parameters returns the editable properties of a component.
func (r *Repository) Parameters(ctx context.Context, componentID string) ([]pagemodel.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, err := r.component(ctx, componentID); err != nil {
		return nil, err
	}
	var props []pagemodel.Property
	if err := r.get(ctx, KindParameters, componentID, &props); err != nil && !IsNotFound(err) {
		return nil, err
	}
	if props == nil {
		props = []pagemodel.Property{}
	}
	return props, nil
}

// PutParameters stores the properties of a component as is.
func (r *Repository) PutParameters(ctx context.Context, componentID string, props []pagemodel.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(ctx, KindParameters, componentID, props)
}

// SaveParameters sets property values of a component. Unknown names and
// empty required values are rejected.
func (r *Repository) SaveParameters(ctx context.Context, componentID string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.component(ctx, componentID); err != nil {
		return err
	}
	var props []pagemodel.Property
	if err := r.get(ctx, KindParameters, componentID, &props); err != nil && !IsNotFound(err) {
		return err
	}
	updated, err := pagemodel.ApplyValues(props, values)
	if err != nil {
		return err
	}
	if missing := pagemodel.Missing(updated); len(missing) > 0 {
		return errors.New(errors.ErrCodeRequired, "required: %s", strings.Join(missing, ", "))
	}
	return r.put(ctx, KindParameters, componentID, updated)
}

func documentsID(siteID, docType string) string { return siteID + "/" + docType }

// Documents returns the documents of a type within a site.
func (r *Repository) Documents(ctx context.Context, siteID, docType string) ([]pagemodel.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var docs []pagemodel.Document
	if err := r.get(ctx, KindDocuments, documentsID(siteID, docType), &docs); err != nil && !IsNotFound(err) {
		return nil, err
	}
	if docs == nil {
		docs = []pagemodel.Document{}
	}
	return docs, nil
}

// PutDocuments stores the document paths of a type within a site.
func (r *Repository) PutDocuments(ctx context.Context, siteID, docType string, paths []string) error {
	docs := make([]pagemodel.Document, len(paths))
	for i, p := range paths {
		docs[i] = pagemodel.Document{Path: p}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(ctx, KindDocuments, documentsID(siteID, docType), docs)
}
