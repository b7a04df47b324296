package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Upgrader is used by Upgrade. Origins are not checked; the dev backend
// serves the editor and the page from the same process.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocket is a Channel over a gorilla/websocket connection. A read pump
// decodes incoming text frames and a write pump serialises writes and keeps
// the connection alive with pings.
type WebSocket struct {
	conn   *websocket.Conn
	send   chan []byte
	recv   chan Message
	done   chan struct{}
	once   sync.Once
	logger *log.Logger

	header http.Header

	mu  sync.Mutex
	err error
}

// NewWebSocket wraps an established connection and starts its pumps.
func NewWebSocket(conn *websocket.Conn, logger *log.Logger) *WebSocket {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	ws := &WebSocket{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		recv:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go ws.readPump()
	go ws.writePump()
	return ws
}

// Dial connects to a WebSocket endpoint.
func Dial(ctx context.Context, url string, logger *log.Logger) (*WebSocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws := NewWebSocket(conn, logger)
	ws.header = resp.Header
	return ws, nil
}

// Upgrade upgrades an HTTP request to a WebSocket channel. Headers already
// set on w are sent with the handshake response.
func Upgrade(w http.ResponseWriter, r *http.Request, logger *log.Logger) (*WebSocket, error) {
	conn, err := Upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	return NewWebSocket(conn, logger), nil
}

// Send queues m for writing.
func (ws *WebSocket) Send(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case <-ws.done:
		return ws.closedErr()
	default:
	}
	select {
	case ws.send <- data:
		return nil
	case <-ws.done:
		return ws.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next decoded message.
func (ws *WebSocket) Receive(ctx context.Context) (Message, error) {
	select {
	case m := <-ws.recv:
		return m, nil
	default:
	}
	select {
	case m := <-ws.recv:
		return m, nil
	case <-ws.done:
		return Message{}, ws.closedErr()
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close stops both pumps and closes the connection. It is safe to call
// more than once.
func (ws *WebSocket) Close() error {
	ws.shutdown(nil)
	return nil
}

// Header returns the handshake response headers of a dialed connection.
func (ws *WebSocket) Header() http.Header { return ws.header }

// Done is closed when the connection shuts down.
func (ws *WebSocket) Done() <-chan struct{} { return ws.done }

func (ws *WebSocket) shutdown(cause error) {
	ws.once.Do(func() {
		ws.mu.Lock()
		ws.err = cause
		ws.mu.Unlock()
		close(ws.done)
	})
}

func (ws *WebSocket) closedErr() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, ws.err)
	}
	return ErrClosed
}

func (ws *WebSocket) readPump() {
	defer ws.conn.Close()
	ws.conn.SetReadLimit(maxMessageSize)
	_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Warn("websocket read failed", "err", err)
				ws.shutdown(err)
			} else {
				ws.shutdown(nil)
			}
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			ws.logger.Warn("dropping malformed message", "err", err)
			continue
		}
		select {
		case ws.recv <- m:
		case <-ws.done:
			return
		}
	}
}

func (ws *WebSocket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.conn.Close()
	}()
	for {
		select {
		case data := <-ws.send:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ws.logger.Warn("websocket write failed", "err", err)
				ws.shutdown(err)
				return
			}
		case <-ticker.C:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.shutdown(err)
				return
			}
		case <-ws.done:
			_ = ws.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
