package rest

import (
	"context"
	"net/url"
	"time"

	"github.com/matzehuels/pagecomposer/pkg/cache"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// DefaultDocumentsTTL bounds how long combo options are reused.
const DefaultDocumentsTTL = 5 * time.Minute

// ParametersPath is the endpoint of a component's editable properties.
func ParametersPath(componentID string) string {
	return "_rp/" + url.PathEscape(componentID) + "./parameters"
}

// DocumentsPath lists the documents of docType offered for combo fields.
func DocumentsPath(siteID, docType string) string {
	return "_rp/" + url.PathEscape(siteID) + "./documents/" + url.PathEscape(docType)
}

// PageModelPath lists the component records of a page.
func PageModelPath(pageID string) string {
	return "_rp/" + url.PathEscape(pageID) + "./pagemodel"
}

// ToolkitPath lists the components that can be added.
func ToolkitPath(toolkitID string) string {
	return "_rp/" + url.PathEscape(toolkitID) + "./toolkit"
}

// CreatePath adds a toolkit component to a container.
func CreatePath(parentID, toolkitItemID string) string {
	return "_rp/" + url.PathEscape(parentID) + "./create/" + url.PathEscape(toolkitItemID)
}

// UpdatePath stores a container's child order.
func UpdatePath(containerID string) string {
	return "_rp/" + url.PathEscape(containerID) + "./update"
}

// DeletePath removes an item from its container.
func DeletePath(parentID, id string) string {
	return "_rp/" + url.PathEscape(parentID) + "./delete/" + url.PathEscape(id)
}

// KeepAlivePath keeps the backend session of a site open.
func KeepAlivePath(siteID string) string {
	return "_rp/" + url.PathEscape(siteID) + "./keepalive"
}

// PagesPath lists the pages.
const PagesPath = "pages"

// PagePath serves the markup of a page.
func PagePath(pageID string) string {
	return "pages/" + url.PathEscape(pageID)
}

// API is the typed page composer backend.
type API struct {
	client *Client
	cache  cache.Cache
	keys   cache.Keyer
	ttl    time.Duration
}

// NewAPI wraps client. A nil cache disables caching.
func NewAPI(client *Client, c cache.Cache, keys cache.Keyer) *API {
	if keys == nil {
		keys = cache.NewDefaultKeyer()
	}
	return &API{client: client, cache: c, keys: keys, ttl: DefaultDocumentsTTL}
}

// SetCacheTTL changes how long cached documents and toolkits are reused.
func (a *API) SetCacheTTL(d time.Duration) {
	if d > 0 {
		a.ttl = d
	}
}

// cached reads key into v. Without a cache every lookup misses.
func (a *API) cached(ctx context.Context, key string, v any) bool {
	if a.cache == nil {
		return false
	}
	ok, _ := cache.GetJSON(ctx, a.cache, key, v)
	return ok
}

func (a *API) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	_ = cache.SetJSON(ctx, a.cache, key, v, ttl)
}

// Client returns the underlying HTTP client.
func (a *API) Client() *Client { return a.client }

// Parameters returns the editable properties of a component.
func (a *API) Parameters(ctx context.Context, componentID string) ([]pagemodel.Property, error) {
	var resp pagemodel.PropertiesResponse
	if err := a.client.GetJSON(ctx, ParametersPath(componentID), &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

// SaveParameters posts the full field set of a component as a form.
func (a *API) SaveParameters(ctx context.Context, componentID string, values map[string]string) error {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	return a.client.PostForm(ctx, ParametersPath(componentID), form, nil)
}

// Documents returns the document paths of docType, served from the cache
// while fresh.
func (a *API) Documents(ctx context.Context, siteID, docType string) ([]string, error) {
	key := a.keys.DocumentsKey(siteID, docType)
	var paths []string
	if a.cached(ctx, key, &paths) {
		return paths, nil
	}
	var resp pagemodel.ListResponse[pagemodel.Document]
	if err := a.client.GetJSON(ctx, DocumentsPath(siteID, docType), &resp); err != nil {
		return nil, err
	}
	paths = make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		paths = append(paths, d.Path)
	}
	a.store(ctx, key, paths, a.ttl)
	return paths, nil
}

// PageModel returns the component records of a page. Reloads always go to
// the backend and refresh the cached copy.
func (a *API) PageModel(ctx context.Context, pageID string) ([]pagemodel.Component, error) {
	var resp pagemodel.ListResponse[pagemodel.Component]
	if err := a.client.GetJSON(ctx, PageModelPath(pageID), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeNetwork, "page model %s: %s", pageID, resp.Message)
	}
	a.store(ctx, a.keys.PageModelKey(pageID), resp.Data, 0)
	return resp.Data, nil
}

// CachedPageModel returns the last page model loaded for pageID.
func (a *API) CachedPageModel(ctx context.Context, pageID string) ([]pagemodel.Component, bool) {
	var out []pagemodel.Component
	ok := a.cached(ctx, a.keys.PageModelKey(pageID), &out)
	return out, ok
}

// Toolkit returns the components that can be added to a page.
func (a *API) Toolkit(ctx context.Context, toolkitID string) ([]pagemodel.Component, error) {
	key := a.keys.ToolkitKey(toolkitID)
	var out []pagemodel.Component
	if a.cached(ctx, key, &out) {
		return out, nil
	}
	var resp pagemodel.ListResponse[pagemodel.Component]
	if err := a.client.GetJSON(ctx, ToolkitPath(toolkitID), &resp); err != nil {
		return nil, err
	}
	a.store(ctx, key, resp.Data, a.ttl)
	return resp.Data, nil
}

// Create adds a copy of a toolkit component to a container.
func (a *API) Create(ctx context.Context, parentID, toolkitItemID string) (pagemodel.Component, error) {
	var resp pagemodel.ItemResponse[pagemodel.Component]
	if err := a.client.PostJSON(ctx, CreatePath(parentID, toolkitItemID), struct{}{}, &resp); err != nil {
		return pagemodel.Component{}, err
	}
	return resp.Data, nil
}

// UpdateChildren stores a container's new child order.
func (a *API) UpdateChildren(ctx context.Context, containerID string, children []string) error {
	body := pagemodel.Component{ID: containerID, Children: children}
	return a.client.PostJSON(ctx, UpdatePath(containerID), body, nil)
}

// Delete removes item id from its container.
func (a *API) Delete(ctx context.Context, parentID, id string) error {
	return a.client.GetJSON(ctx, DeletePath(parentID, id), nil)
}

// KeepAlive pings the backend session of a site.
func (a *API) KeepAlive(ctx context.Context, siteID string) error {
	return a.client.GetJSON(ctx, KeepAlivePath(siteID), nil)
}

// Pages lists the editable pages.
func (a *API) Pages(ctx context.Context) ([]pagemodel.Page, error) {
	var resp pagemodel.ListResponse[pagemodel.Page]
	if err := a.client.GetJSON(ctx, PagesPath, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FindPage returns the page record with id.
func (a *API) FindPage(ctx context.Context, id string) (pagemodel.Page, error) {
	pages, err := a.Pages(ctx)
	if err != nil {
		return pagemodel.Page{}, err
	}
	for _, p := range pages {
		if p.ID == id {
			return p, nil
		}
	}
	return pagemodel.Page{}, errors.New(errors.ErrCodeNotFound, "no page %q", id)
}

// Page returns the markup of a page.
func (a *API) Page(ctx context.Context, pageID string) (string, error) {
	return a.client.GetText(ctx, PagePath(pageID))
}
