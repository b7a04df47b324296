package composer

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dnd"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
	"github.com/matzehuels/pagecomposer/pkg/observability"
	"github.com/matzehuels/pagecomposer/pkg/widget"
)

// IndicatorID is the id of the drop indicator element.
const IndicatorID = "hst-drop-indicator"

// Options configures an Engine.
type Options struct {
	// Layout answers element boxes. Defaults to dom.AttrLayout.
	Layout dom.Layout
	// Logger defaults to a discarding logger.
	Logger *log.Logger
	// Indicator sizes drop indicators. Defaults to geometry.DefaultConfig.
	Indicator geometry.Config
	// RemoveFirst makes cross-container drags fire remove before receive.
	RemoveFirst bool
	// QueueSize is the loop's task queue size. Defaults to 64.
	QueueSize int
	// Register adds constructors after the defaults are registered.
	Register func(r *widget.Registry)
	// Source returns fresh page markup for Reload. Without it Reload
	// rescans the current document.
	Source func(ctx context.Context) (string, error)
}

// Engine owns the widgets of one editing session.
type Engine struct {
	doc        *dom.Document
	out        channel.Sender
	opts       Options
	logger     *log.Logger
	env        *widget.Env
	registry   *widget.Registry
	surface    *dnd.Surface
	dispatcher *channel.Dispatcher
	loop       *Loop
	ctx        context.Context

	indicator   *dom.Element
	names       widget.NameFacade
	selected    string
	initialized bool
	syncPending bool
	dragStarted time.Time
}

// New returns an engine for doc that sends outbound messages to out.
func New(doc *dom.Document, out channel.Sender, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	e := &Engine{
		doc:    doc,
		out:    out,
		opts:   opts,
		logger: opts.Logger,
		ctx:    context.Background(),
	}
	e.env = &widget.Env{
		Doc:       doc,
		Layout:    opts.Layout,
		Sender:    channel.SenderFunc(e.send),
		Logger:    opts.Logger,
		Indicator: opts.Indicator,
	}
	e.reset()
	e.dispatcher = channel.NewDispatcher(opts.Logger)
	e.routes()
	e.loop = NewLoop(opts.QueueSize, opts.Logger)
	e.loop.OnPanic(func(r any) {
		e.emitError(errors.New(errors.ErrCodeInternal, "panic: %v", r))
	})
	return e
}

// reset creates a fresh registry and surface.
func (e *Engine) reset() {
	e.registry = widget.NewDefaultRegistry(e.env)
	if e.opts.Register != nil {
		e.opts.Register(e.registry)
	}
	e.surface = dnd.NewSurface(
		dnd.WithLogger(e.logger),
		dnd.WithRemoveFirst(e.opts.RemoveFirst),
		dnd.WithErrorSink(func(event, list string, err error) {
			observability.Engine().OnDispatchError(e.ctx, "drag."+event, err)
		}),
	)
}

// Document returns the embedded document.
func (e *Engine) Document() *dom.Document { return e.doc }

// Registry returns the session's widget registry.
func (e *Engine) Registry() *widget.Registry { return e.registry }

// Surface returns the drag-and-drop surface.
func (e *Engine) Surface() *dnd.Surface { return e.surface }

// Loop returns the engine's event loop.
func (e *Engine) Loop() *Loop { return e.loop }

// Indicator returns the drop indicator element, or nil before Init.
func (e *Engine) Indicator() *dom.Element { return e.indicator }

// Selected returns the id of the selected widget, or "".
func (e *Engine) Selected() string { return e.selected }

// Initialized reports whether Init has run since the last Teardown.
func (e *Engine) Initialized() bool { return e.initialized }

// send forwards engine messages to the host and records reorders.
func (e *Engine) send(ctx context.Context, m channel.Message) error {
	if m.Tag == channel.TagRearrange {
		var p channel.RearrangePayload
		if err := m.Decode(&p); err == nil {
			observability.Engine().OnRearrange(e.ctx, p.ID, len(p.Children))
			e.logger.Debug("rearrange", "container", p.ID, "children", p.Children)
		}
	}
	if e.out == nil {
		return nil
	}
	return e.out.Send(ctx, m)
}

func (e *Engine) emitError(err error) {
	e.logger.Warn("dispatch failed", "err", err)
	if sendErr := e.send(e.ctx, channel.MustMessage(channel.TagError, channel.ErrorPayload{Message: errors.UserMessage(err)})); sendErr != nil {
		e.logger.Warn("send error message", "err", sendErr)
	}
}

// Init scans the document for containers and renders them. A failing
// element is logged and joined into the returned error; its siblings are
// still initialized.
func (e *Engine) Init() error {
	start := time.Now()
	if e.initialized {
		e.Teardown()
	}
	e.ensureIndicator()

	els, err := e.doc.Find("[" + widget.AttrType + "]")
	if err != nil {
		return err
	}
	var errs []error
	count := 0
	for _, el := range els {
		tag, _ := el.Attr(widget.AttrType)
		if tag == widget.TagItem {
			continue
		}
		w, err := e.registry.CreateOrRetrieve(el)
		if err != nil {
			e.logger.Warn("skipping element", "element", dom.Path(el), "err", err)
			errs = append(errs, err)
			continue
		}
		c, ok := w.(*widget.Container)
		if !ok {
			continue
		}
		c.Render(e)
		e.surface.Connect(c)
		count++
	}
	if e.names != nil {
		e.shareNames()
	}
	e.initialized = true
	e.announce()
	err = stderrors.Join(errs...)
	observability.Engine().OnInit(e.ctx, count, time.Since(start), err)
	e.logger.Debug("initialized", "containers", count, "failed", len(errs))
	return err
}

// Page identity attributes on <body>.
const (
	AttrSite    = "data-hst-site"
	AttrToolkit = "data-hst-toolkit"
	AttrRoot    = "data-hst-root"
)

// announce tells the host which page it is editing.
func (e *Engine) announce() {
	body := e.doc.Body()
	root, ok := body.Attr(AttrRoot)
	if !ok {
		return
	}
	p := channel.AppLoadedPayload{
		SiteID:    body.AttrOr(AttrSite, ""),
		ToolkitID: body.AttrOr(AttrToolkit, ""),
		RootID:    root,
	}
	if err := e.send(e.ctx, channel.MustMessage(channel.TagAppLoaded, p)); err != nil {
		e.logger.Warn("announce", "err", err)
	}
}

func (e *Engine) ensureIndicator() {
	if e.indicator != nil && e.indicator.Attached() {
		return
	}
	if el := e.doc.ElementByID(IndicatorID); el != nil {
		e.indicator = el
		return
	}
	e.indicator = e.doc.CreateElement("div")
	e.indicator.SetAttr("id", IndicatorID)
	e.indicator.AddClass(IndicatorID)
	e.indicator.Hide()
	e.doc.Body().AppendChild(e.indicator)
}

// Containers returns the rendered containers in scan order.
func (e *Engine) Containers() []*widget.Container {
	var out []*widget.Container
	for _, c := range e.registry.Containers() {
		if c.Rendered() {
			out = append(out, c)
		}
	}
	return out
}

// Container returns the container with id.
func (e *Engine) Container(id string) (*widget.Container, error) {
	w, err := e.registry.GetByID(id)
	if err != nil {
		return nil, err
	}
	c, ok := w.(*widget.Container)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not a container", id)
	}
	return c, nil
}

// Owner returns the container holding item id.
func (e *Engine) Owner(id string) (*widget.Container, error) {
	for _, c := range e.Containers() {
		if c.HasItem(id) {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no container holds %q", id)
}

// Sync repositions every overlay.
func (e *Engine) Sync() {
	for _, c := range e.Containers() {
		c.Sync()
	}
	e.syncPending = false
}

// Drag moves item id into container to at index as one gesture.
func (e *Engine) Drag(itemID, to string, index int) error {
	return e.surface.Move(itemID, to, index)
}

// Reload replaces the document with fresh markup from Options.Source and
// initializes it, as a browser reloading the edited page would.
func (e *Engine) Reload() error {
	if e.opts.Source == nil {
		return e.Init()
	}
	src, err := e.opts.Source(e.ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "reload page")
	}
	doc, err := dom.ParseString(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "reload page")
	}
	e.Teardown()
	e.doc = doc
	e.env.Doc = doc
	e.reset()
	return e.Init()
}

// Teardown destroys every widget, as on a page refresh.
func (e *Engine) Teardown() {
	for _, c := range e.registry.Containers() {
		e.surface.Disconnect(c.ID())
	}
	for _, w := range e.registry.Widgets() {
		w.Destroy()
		e.registry.Forget(w.ID())
	}
	if e.indicator != nil {
		e.indicator.Remove()
		e.indicator = nil
	}
	e.selected = ""
	e.initialized = false
	e.reset()
}

// =============================================================================
// Host contract
// =============================================================================

// OverlaySurface implements widget.Parent: container overlays go to the body.
func (e *Engine) OverlaySurface() *dom.Element { return nil }

// OnDragStart implements widget.Host.
func (e *Engine) OnDragStart(item *widget.Item, from *widget.Container) {
	e.dragStarted = time.Now()
	for _, c := range e.Containers() {
		c.BeforeDrag()
		c.Highlight()
	}
	observability.Engine().OnDragStart(e.ctx, item.ID(), from.ID())
}

// OnDrag implements widget.Host: it redraws the drop indicator.
func (e *Engine) OnDrag(p dnd.Placement, over *widget.Container) {
	e.ensureIndicator()
	if err := over.DrawDropIndicator(p, e.indicator); err != nil {
		e.logger.Debug("drop indicator", "container", over.ID(), "err", err)
	}
}

// OnDragStop implements widget.Host.
func (e *Engine) OnDragStop(itemID string) {
	for _, c := range e.Containers() {
		c.AfterDrag()
		c.Unhighlight()
	}
	if e.indicator != nil {
		e.indicator.Hide()
	}
	observability.Engine().OnDragStop(e.ctx, itemID, time.Since(e.dragStarted))
}

// CheckStateChanges implements widget.Host: every container reconciles.
func (e *Engine) CheckStateChanges() {
	for _, c := range e.Containers() {
		c.CheckState()
	}
	e.flushSync()
}

// RequestSync implements widget.Host. The sync runs once the current
// reconciliation pass is over.
func (e *Engine) RequestSync() { e.syncPending = true }

func (e *Engine) flushSync() {
	if e.syncPending {
		e.Sync()
	}
}

var _ widget.Host = (*Engine)(nil)
