package composer

import (
	"context"
	"errors"

	"github.com/matzehuels/pagecomposer/pkg/channel"
)

// Post queues fn on the engine loop.
func (e *Engine) Post(fn func()) error { return e.loop.Post(fn) }

// Call runs fn on the engine loop and waits for its result.
func (e *Engine) Call(ctx context.Context, fn func() error) error {
	return e.loop.Call(ctx, fn)
}

// Dispatch queues an inbound message. Failures are reported to the host
// as error messages.
func (e *Engine) Dispatch(m channel.Message) error {
	return e.loop.Post(func() {
		if err := e.Handle(m); err != nil {
			e.emitError(err)
		}
	})
}

// Run runs the engine loop until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	return e.loop.Run(ctx)
}

// Serve receives messages from in, dispatches them on the loop and runs
// the loop until ctx is done or in is closed. When in closes, the messages
// already received are handled before Serve returns.
func (e *Engine) Serve(ctx context.Context, in channel.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvErr := make(chan error, 1)
	go func() {
		for {
			m, err := in.Receive(ctx)
			if err != nil {
				recvErr <- err
				if ctx.Err() != nil {
					return
				}
				// Stop behind everything already queued.
				if e.loop.Post(cancel) != nil {
					cancel()
				}
				return
			}
			if err := e.Dispatch(m); err != nil {
				recvErr <- err
				cancel()
				return
			}
		}
	}()

	err := e.Run(ctx)
	select {
	case rerr := <-recvErr:
		if errors.Is(rerr, channel.ErrClosed) || errors.Is(rerr, context.Canceled) {
			return nil
		}
		return rerr
	default:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
