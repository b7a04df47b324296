// Package shell is the host side of the editor. It consumes the messages an
// engine emits, keeps the page model of the edited page, persists structural
// changes through the backend and drives the properties panel.
package shell

import (
	"context"
	stderrors "errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/properties"
)

// DefaultKeepAlive is the interval of backend keepalive pings.
const DefaultKeepAlive = 5 * time.Minute

// DefaultSettle bounds how long a reload waits for the second half of a
// cross-container move.
const DefaultSettle = 2 * time.Second

// Backend persists the page model.
type Backend interface {
	PageModel(ctx context.Context, pageID string) ([]pagemodel.Component, error)
	Toolkit(ctx context.Context, toolkitID string) ([]pagemodel.Component, error)
	Create(ctx context.Context, parentID, toolkitItemID string) (pagemodel.Component, error)
	UpdateChildren(ctx context.Context, containerID string, children []string) error
	Delete(ctx context.Context, parentID, id string) error
	KeepAlive(ctx context.Context, siteID string) error
}

// Reloader reloads the edited page. The engine announces itself again once
// the page is back, which reloads the page model.
type Reloader func(ctx context.Context) error

// Confirm asks whether a component may be removed.
type Confirm func(ctx context.Context, c pagemodel.Component) bool

// Options configures a Shell.
type Options struct {
	Logger   *log.Logger
	Panel    *properties.Panel
	Reloader Reloader
	Confirm  Confirm
	// Settle is the longest a reload is held back while a moved item is
	// listed by no container or by two. Zero means DefaultSettle.
	Settle time.Duration
}

// Shell reacts to engine messages. It is safe for concurrent use.
type Shell struct {
	backend Backend
	engine  channel.Sender
	panel   *properties.Panel
	reload  Reloader
	confirm Confirm
	logger  *log.Logger
	settle  time.Duration

	mu         sync.Mutex
	page       channel.AppLoadedPayload
	components map[string]pagemodel.Component
	order      []string
	toolkit    []pagemodel.Component
	selected   string
	reloading  bool
	held       *time.Timer
	baseline   []string // stray items of the loaded page model
}

// New returns a shell that talks to the engine through engine. Without a
// Reloader the engine is sent a reload message; without a Confirm every
// removal is accepted.
func New(b Backend, engine channel.Sender, opts Options) *Shell {
	s := &Shell{
		backend:    b,
		engine:     engine,
		panel:      opts.Panel,
		reload:     opts.Reloader,
		confirm:    opts.Confirm,
		logger:     opts.Logger,
		settle:     opts.Settle,
		components: make(map[string]pagemodel.Component),
	}
	if s.settle <= 0 {
		s.settle = DefaultSettle
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.panel == nil {
		s.panel = properties.NewPanel(nopProperties{}, properties.WithLogger(s.logger))
	}
	if s.reload == nil {
		s.reload = s.reinit
	}
	if s.confirm == nil {
		s.confirm = func(context.Context, pagemodel.Component) bool { return true }
	}
	return s
}

// Panel returns the properties panel.
func (s *Shell) Panel() *properties.Panel { return s.panel }

// Page returns the identifiers announced by the engine.
func (s *Shell) Page() channel.AppLoadedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Selected returns the selected component id, or "".
func (s *Shell) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Reloading reports whether a page reload is in flight.
func (s *Shell) Reloading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloading
}

// Component returns a record of the loaded page model.
func (s *Shell) Component(id string) (pagemodel.Component, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[id]
	return c, ok
}

// Components returns the loaded page model in backend order.
func (s *Shell) Components() []pagemodel.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pagemodel.Component, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.components[id])
	}
	return out
}

// Toolkit returns the components that can be added to the page.
func (s *Shell) Toolkit() []pagemodel.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.toolkit)
}

// =============================================================================
// Engine messages
// =============================================================================

// Handle applies one engine message.
func (s *Shell) Handle(ctx context.Context, m channel.Message) error {
	s.logger.Debug("engine message", "msg", m)
	switch m.Tag {
	case channel.TagAppLoaded:
		var p channel.AppLoadedPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad onappload")
		}
		return s.AppLoaded(ctx, p)
	case channel.TagOnClick:
		var p channel.ElementPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad onclick")
		}
		return s.Click(ctx, p.Element)
	case channel.TagRemove:
		var p channel.ElementPayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad remove")
		}
		return s.Remove(ctx, p.Element)
	case channel.TagRearrange:
		var p channel.RearrangePayload
		if err := m.Decode(&p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad rearrange")
		}
		return s.Rearrange(ctx, p.ID, p.Children)
	case channel.TagRefresh:
		return s.Reload(ctx)
	case channel.TagError:
		var p channel.ErrorPayload
		_ = m.Decode(&p)
		s.logger.Warn("engine error", "message", p.Message)
		return nil
	default:
		return errors.New(errors.ErrCodeUnsupported, "no handler for message %q", m.Tag)
	}
}

// Serve handles engine messages from in until ctx is done or in closes.
// Handler failures are logged and do not stop the loop.
func (s *Shell) Serve(ctx context.Context, in channel.Receiver) error {
	for {
		m, err := in.Receive(ctx)
		if err != nil {
			if stderrors.Is(err, channel.ErrClosed) || stderrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := s.Handle(ctx, m); err != nil {
			s.logger.Warn("handle engine message", "tag", m.Tag, "err", err)
		}
	}
}

// AppLoaded records the page identifiers, loads the page model and shares
// the component names with the engine.
func (s *Shell) AppLoaded(ctx context.Context, p channel.AppLoadedPayload) error {
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()

	if p.ToolkitID != "" {
		tk, err := s.backend.Toolkit(ctx, p.ToolkitID)
		if err != nil {
			s.logger.Warn("load toolkit", "toolkit", p.ToolkitID, "err", err)
		} else {
			s.mu.Lock()
			s.toolkit = tk
			s.mu.Unlock()
		}
	}
	return s.LoadPageModel(ctx)
}

// LoadPageModel reloads the page model, ends a pending reload and shares
// the component names with the engine.
func (s *Shell) LoadPageModel(ctx context.Context) error {
	s.mu.Lock()
	root := s.page.RootID
	s.mu.Unlock()
	if root == "" {
		s.endReload()
		return errors.New(errors.ErrCodeInvalidInput, "no page loaded")
	}

	comps, err := s.backend.PageModel(ctx, root)
	s.mu.Lock()
	s.reloading = false
	if err == nil {
		s.components = make(map[string]pagemodel.Component, len(comps))
		s.order = s.order[:0]
		for _, c := range comps {
			s.components[c.ID] = c
			s.order = append(s.order, c.ID)
		}
		if _, ok := s.components[s.selected]; !ok {
			s.selected = ""
		}
		s.baseline = s.strayItems()
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("load page model", "page", root, "err", err)
		return err
	}
	s.logger.Debug("page model loaded", "page", root, "components", len(comps))
	return s.ShareData(ctx)
}

// ShareData sends the display names of all components to the engine.
func (s *Shell) ShareData(ctx context.Context) error {
	s.mu.Lock()
	names := make(map[string]string, len(s.components))
	for id, c := range s.components {
		if c.Name != "" {
			names[id] = c.Name
		}
	}
	s.mu.Unlock()
	return s.send(ctx, channel.TagShareData, channel.ShareDataPayload{Names: names})
}

// Click toggles the selection of a component. Selecting an item shows its
// properties; anything else clears the panel.
func (s *Shell) Click(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeRequired, "click without element")
	}
	s.mu.Lock()
	deselect := s.selected == id
	if deselect {
		s.selected = ""
	} else {
		s.selected = id
	}
	c, known := s.components[id]
	site := s.page.SiteID
	s.mu.Unlock()

	if deselect {
		s.panel.Clear()
		return s.send(ctx, channel.TagDeselect, channel.IDPayload{ID: id})
	}
	if err := s.send(ctx, channel.TagSelect, channel.IDPayload{ID: id}); err != nil {
		return err
	}
	if !known || !c.IsItem() {
		s.panel.Clear()
		return nil
	}
	return s.panel.Reload(ctx, site, id, c.Name, c.Path)
}

// Remove deletes a component after confirmation and removes its widget
// from the engine.
func (s *Shell) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	c, ok := s.components[id]
	parent := s.parentOf(id)
	s.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeComponentNotFound, "no component %q", id)
	}
	if parent == "" {
		return errors.New(errors.ErrCodeInvalidInput, "component %q has no container", id)
	}
	if !s.confirm(ctx, c) {
		s.logger.Debug("remove cancelled", "id", id)
		return nil
	}
	if err := s.backend.Delete(ctx, parent, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.components, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	if p, ok := s.components[parent]; ok {
		p.Children = slices.DeleteFunc(slices.Clone(p.Children), func(o string) bool { return o == id })
		s.components[parent] = p
	}
	wasSelected := s.selected == id
	if wasSelected {
		s.selected = ""
	}
	s.mu.Unlock()

	if wasSelected {
		s.panel.Clear()
	}
	s.logger.Info("component removed", "id", id, "container", parent)
	return s.send(ctx, channel.TagRemove, channel.IDPayload{ID: id})
}

// parentOf returns the container of id. Callers hold s.mu.
func (s *Shell) parentOf(id string) string {
	if c, ok := s.components[id]; ok && c.ParentID != "" {
		return c.ParentID
	}
	for _, cid := range s.order {
		if s.components[cid].HasChild(id) {
			return cid
		}
	}
	return ""
}

// Rearrange stores a container's new child order and reloads the page.
//
// A move between containers arrives as two rearranges. Until both are saved
// the moved item is listed by no container (or by two), so the reload is
// held back until no item is stray that was placed in a single container
// when the page model was loaded, or until the settle time has passed.
func (s *Shell) Rearrange(ctx context.Context, containerID string, children []string) error {
	if containerID == "" {
		return errors.New(errors.ErrCodeRequired, "rearrange without container")
	}
	if err := s.backend.UpdateChildren(ctx, containerID, children); err != nil {
		return err
	}
	s.mu.Lock()
	if c, ok := s.components[containerID]; ok {
		c.Children = slices.Clone(children)
		s.components[containerID] = c
	}
	for _, id := range children {
		if c, ok := s.components[id]; ok {
			c.ParentID = containerID
			s.components[id] = c
		}
	}
	stray := slices.DeleteFunc(s.strayItems(), func(id string) bool { return slices.Contains(s.baseline, id) })
	if len(stray) > 0 {
		if s.held == nil {
			s.held = time.AfterFunc(s.settle, s.releaseHeld)
		}
		s.mu.Unlock()
		s.logger.Debug("reload held for pending move", "container", containerID, "items", stray)
		return nil
	}
	if s.held != nil {
		s.held.Stop()
		s.held = nil
	}
	s.mu.Unlock()
	s.logger.Info("container rearranged", "id", containerID, "children", len(children))
	return s.Reload(ctx)
}

// releaseHeld reloads after the settle time when a move never completed.
func (s *Shell) releaseHeld() {
	s.mu.Lock()
	s.held = nil
	s.mu.Unlock()
	s.logger.Warn("move did not settle, reloading")
	if err := s.Reload(context.Background()); err != nil {
		s.logger.Warn("reload", "err", err)
	}
}

// strayItems returns the items not listed by exactly one container.
// Callers hold s.mu.
func (s *Shell) strayItems() []string {
	listed := make(map[string]int)
	for _, id := range s.order {
		if c := s.components[id]; c.IsContainer() {
			for _, child := range c.Children {
				listed[child]++
			}
		}
	}
	var stray []string
	for _, id := range s.order {
		if c := s.components[id]; c.IsItem() && listed[id] != 1 {
			stray = append(stray, id)
		}
	}
	return stray
}

// AddComponent creates a copy of a toolkit component in a container and
// reloads the page.
func (s *Shell) AddComponent(ctx context.Context, containerID, toolkitItemID string) (pagemodel.Component, error) {
	c, err := s.backend.Create(ctx, containerID, toolkitItemID)
	if err != nil {
		return pagemodel.Component{}, err
	}
	s.logger.Info("component created", "id", c.ID, "container", containerID)
	return c, s.Reload(ctx)
}

// Reload reloads the page unless a reload is already in flight. The latch
// is released when the page model has been loaded again.
func (s *Shell) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.reloading {
		s.mu.Unlock()
		s.logger.Debug("reload already pending")
		return nil
	}
	s.reloading = true
	s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		s.endReload()
		return err
	}
	return nil
}

func (s *Shell) endReload() {
	s.mu.Lock()
	s.reloading = false
	s.mu.Unlock()
}

// reinit asks the engine to reload the page.
func (s *Shell) reinit(ctx context.Context) error {
	return s.send(ctx, channel.TagReload, nil)
}

// KeepAlive pings the backend every interval until ctx is done.
func (s *Shell) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultKeepAlive
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			site := s.Page().SiteID
			if site == "" {
				continue
			}
			if err := s.backend.KeepAlive(ctx, site); err != nil {
				s.logger.Warn("keepalive", "site", site, "err", err)
			}
		}
	}
}

func (s *Shell) send(ctx context.Context, tag channel.Tag, v any) error {
	m, err := channel.NewMessage(tag, v)
	if err != nil {
		return err
	}
	return s.engine.Send(ctx, m)
}

type nopProperties struct{}

func (nopProperties) Parameters(context.Context, string) ([]pagemodel.Property, error) {
	return nil, nil
}

func (nopProperties) SaveParameters(context.Context, string, map[string]string) error { return nil }

func (nopProperties) Documents(context.Context, string, string) ([]string, error) { return nil, nil }
