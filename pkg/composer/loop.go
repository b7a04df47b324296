package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/charmbracelet/log"
)

// ErrLoopStopped is returned by Post after Run has returned.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs posted functions one at a time on a single goroutine. All engine
// mutation happens inside Loop tasks.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	logger  *log.Logger
	onPanic func(recovered any)
}

// NewLoop returns a loop with a task queue of the given size.
func NewLoop(size int, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Loop{
		tasks:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// OnPanic sets the function called with recovered task panics. It must be
// set before Run.
func (l *Loop) OnPanic(fn func(recovered any)) { l.onPanic = fn }

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if err := l.Post(func() { errc <- l.safe(fn) }); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Run executes tasks until ctx is done. Queued tasks are dropped on return.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			_ = l.safe(func() error {
				fn()
				return nil
			})
		}
	}
}

func (l *Loop) safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			if l.onPanic != nil {
				l.onPanic(r)
			}
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}
