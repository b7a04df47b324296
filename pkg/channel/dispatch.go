package channel

import (
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

// HandlerFunc handles one message.
type HandlerFunc func(m Message) error

// Dispatcher routes messages to handlers by tag. Handler panics are
// recovered and returned as INTERNAL_ERROR errors.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Tag]HandlerFunc
	fallback HandlerFunc
	logger   *log.Logger
}

// NewDispatcher returns an empty dispatcher. A nil logger discards output.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Dispatcher{handlers: make(map[Tag]HandlerFunc), logger: logger}
}

// Handle registers h for tag, replacing any previous handler.
func (d *Dispatcher) Handle(tag Tag, h HandlerFunc) {
	d.mu.Lock()
	d.handlers[tag] = h
	d.mu.Unlock()
}

// Fallback registers the handler for tags without a dedicated handler.
func (d *Dispatcher) Fallback(h HandlerFunc) {
	d.mu.Lock()
	d.fallback = h
	d.mu.Unlock()
}

// Dispatch runs the handler for m. Unknown tags without a fallback are
// an UNSUPPORTED error.
func (d *Dispatcher) Dispatch(m Message) (err error) {
	d.mu.RLock()
	h, ok := d.handlers[m.Tag]
	if !ok {
		h = d.fallback
	}
	d.mu.RUnlock()
	if h == nil {
		return errors.New(errors.ErrCodeUnsupported, "no handler for message %q", m.Tag)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handler panicked", "tag", m.Tag, "panic", r, "stack", string(debug.Stack()))
			err = errors.New(errors.ErrCodeInternal, "handler for %q panicked: %s", m.Tag, fmt.Sprint(r))
		}
	}()
	return h(m)
}
