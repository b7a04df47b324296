// Package properties implements the properties panel of the editor: the
// form that shows and saves the editable parameters of the selected
// component.
package properties

import (
	"context"
	stderrors "errors"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// Panel texts.
const (
	NoPropertiesText = "No editable properties found for this component"
	RequiredMark     = " *"
)

// State is the panel's display state.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateNoProperties
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateNoProperties:
		return "no-properties"
	case StateError:
		return "error"
	default:
		return "empty"
	}
}

// Backend serves component parameters and combo options.
type Backend interface {
	Parameters(ctx context.Context, componentID string) ([]pagemodel.Property, error)
	SaveParameters(ctx context.Context, componentID string, values map[string]string) error
	Documents(ctx context.Context, siteID, docType string) ([]string, error)
}

// Field is one form field.
type Field struct {
	Name        string
	Label       string
	Value       string
	Description string
	Type        string
	DocType     string
	Required    bool
	// Options are the selectable values of a combo field.
	Options []string
	// OptionsError is set when the options of a combo could not be loaded.
	OptionsError string
}

// View is a snapshot of the panel for display.
type View struct {
	ComponentID string
	Title       string
	Path        string
	State       State
	Message     string
	Fields      []Field
	// Buttons reports whether save and reset are offered.
	Buttons bool
}

// Panel is the properties form. It is safe for concurrent use; a reload
// started later supersedes the result of an earlier one.
type Panel struct {
	backend Backend
	logger  *log.Logger
	onSaved func(ctx context.Context) error

	mu          sync.Mutex
	gen         uint64
	siteID      string
	componentID string
	name        string
	path        string
	fields      []Field
	state       State
	message     string
}

// Option configures a Panel.
type Option func(*Panel)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(p *Panel) { p.logger = l } }

// OnSaved sets the function run after a successful submit, typically a page
// reload.
func OnSaved(fn func(ctx context.Context) error) Option { return func(p *Panel) { p.onSaved = fn } }

// NewPanel returns an empty panel.
func NewPanel(b Backend, opts ...Option) *Panel {
	p := &Panel{backend: b, logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reload loads the properties of a component and rebuilds the form.
func (p *Panel) Reload(ctx context.Context, siteID, componentID, name, path string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.siteID, p.componentID, p.name, p.path = siteID, componentID, name, path
	p.state = StateLoading
	p.message = ""
	p.fields = nil
	p.mu.Unlock()

	props, err := p.backend.Parameters(ctx, componentID)
	var fields []Field
	if err == nil {
		fields = p.build(ctx, siteID, props)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.logger.Debug("dropping stale properties", "component", componentID)
		return nil
	}
	switch {
	case err != nil:
		p.state = StateError
		p.message = ErrorText("read", err)
		p.logger.Warn("load properties", "component", componentID, "err", err)
		return err
	case len(fields) == 0:
		p.state = StateNoProperties
		p.message = NoPropertiesText
	default:
		p.state = StateReady
		p.fields = fields
	}
	return nil
}

func (p *Panel) build(ctx context.Context, siteID string, props []pagemodel.Property) []Field {
	fields := make([]Field, 0, len(props))
	for _, prop := range props {
		f := Field{
			Name:        prop.Name,
			Label:       prop.Label,
			Value:       prop.Value,
			Description: prop.Description,
			Type:        prop.Type,
			DocType:     prop.DocType,
			Required:    prop.Required,
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		if f.Required {
			f.Label += RequiredMark
		}
		if f.Type == pagemodel.FieldCombo {
			opts, err := p.backend.Documents(ctx, siteID, f.DocType)
			if err != nil {
				p.logger.Warn("load combo options", "field", f.Name, "docType", f.DocType, "err", err)
				f.OptionsError = ErrorText("read", err)
			}
			f.Options = opts
		}
		fields = append(fields, f)
	}
	return fields
}

// ErrorText formats a failed request for inline display.
func ErrorText(action string, err error) string {
	text := "Error during " + action + ". "
	var se *errors.StatusError
	if stderrors.As(err, &se) {
		return text + "\nServer returned statusText: " + se.Status + ", statusCode: " +
			strconv.Itoa(se.StatusCode) + " for request.url=" + se.URL
	}
	return text + errors.UserMessage(err)
}

// Set changes a field value. Combo fields only accept one of their options
// once those are loaded.
func (p *Panel) Set(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.index(name)
	if i < 0 {
		return errors.New(errors.ErrCodeNotFound, "no field %q", name)
	}
	f := &p.fields[i]
	if f.Type == pagemodel.FieldCombo && f.Options != nil && value != "" && !slices.Contains(f.Options, value) {
		return errors.New(errors.ErrCodeInvalidInput, "%q is not an option of %s", value, name)
	}
	f.Value = value
	return nil
}

func (p *Panel) index(name string) int {
	for i, f := range p.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate reports required fields that are empty.
func (p *Panel) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validate()
}

func (p *Panel) validate() error {
	var missing []string
	for _, f := range p.fields {
		if f.Required && strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeRequired, "required: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Submit validates the form, saves every field and runs the OnSaved hook.
// When the save fails the panel switches to [StateError] and shows the
// error in place of the fields.
func (p *Panel) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "nothing to save")
	}
	if err := p.validate(); err != nil {
		p.mu.Unlock()
		return err
	}
	id, gen := p.componentID, p.gen
	values := make(map[string]string, len(p.fields))
	for _, f := range p.fields {
		values[f.Name] = f.Value
	}
	p.mu.Unlock()

	if err := p.backend.SaveParameters(ctx, id, values); err != nil {
		p.mu.Lock()
		// A failed save replaces the form; Reset reloads it.
		if p.gen == gen {
			p.state = StateError
			p.fields = nil
			p.message = ErrorText("submit", err)
		}
		p.mu.Unlock()
		p.logger.Warn("save properties", "component", id, "err", err)
		return err
	}
	p.logger.Info("properties saved", "component", id, "fields", len(values))
	if p.onSaved != nil {
		return p.onSaved(ctx)
	}
	return nil
}

// Reset reloads the current component, discarding edits.
func (p *Panel) Reset(ctx context.Context) error {
	p.mu.Lock()
	site, id, name, path := p.siteID, p.componentID, p.name, p.path
	p.mu.Unlock()
	if id == "" {
		return nil
	}
	return p.Reload(ctx, site, id, name, path)
}

// Clear empties the panel, as when the selection is dropped.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.siteID, p.componentID, p.name, p.path = "", "", "", ""
	p.fields = nil
	p.state = StateEmpty
	p.message = ""
}

// ComponentID returns the component shown, or "".
func (p *Panel) ComponentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.componentID
}

// View returns a snapshot of the panel.
func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	fields := make([]Field, len(p.fields))
	for i, f := range p.fields {
		f.Options = slices.Clone(f.Options)
		fields[i] = f
	}
	return View{
		ComponentID: p.componentID,
		Title:       p.name,
		Path:        p.path,
		State:       p.state,
		Message:     p.message,
		Fields:      fields,
		Buttons:     p.state == StateReady,
	}
}
