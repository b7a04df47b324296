package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("channel closed")

// Sender sends messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Receiver receives messages.
type Receiver interface {
	Receive(ctx context.Context) (Message, error)
}

// Channel is a bidirectional message channel.
type Channel interface {
	Sender
	Receiver
	Close() error
}

// SenderFunc adapts a function to a Sender.
type SenderFunc func(ctx context.Context, m Message) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

const pipeBuffer = 64

// Pipe returns two connected in-memory channel ends. Messages sent on one
// are received on the other. Closing either end closes both.
func Pipe() (Channel, Channel) {
	ab := make(chan Message, pipeBuffer)
	ba := make(chan Message, pipeBuffer)
	shared := &pipeState{done: make(chan struct{})}
	return &pipeEnd{in: ba, out: ab, state: shared}, &pipeEnd{in: ab, out: ba, state: shared}
}

type pipeState struct {
	done chan struct{}
	once sync.Once
}

type pipeEnd struct {
	in    <-chan Message
	out   chan<- Message
	state *pipeState
}

func (p *pipeEnd) Send(ctx context.Context, m Message) error {
	select {
	case <-p.state.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- m:
		return nil
	case <-p.state.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (Message, error) {
	// Drain what was sent before a close.
	select {
	case m := <-p.in:
		return m, nil
	default:
	}
	select {
	case m := <-p.in:
		return m, nil
	case <-p.state.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}

// Recorder is a Sender that keeps every message it is given.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Send implements Sender.
func (r *Recorder) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Tagged returns the recorded messages with the given tag.
func (r *Recorder) Tagged(tag Tag) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Tag == tag {
			out = append(out, m)
		}
	}
	return out
}

// Tags returns the tags of all recorded messages in order.
func (r *Recorder) Tags() []Tag {
	msgs := r.Messages()
	out := make([]Tag, len(msgs))
	for i, m := range msgs {
		out[i] = m.Tag
	}
	return out
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
