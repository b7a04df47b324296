package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/composer"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/session"
)

// SessionHeader carries the id of a new editing session in the WebSocket
// handshake response.
const SessionHeader = "X-Pagecomposer-Session"

// SessionInfo describes a live editing session.
type SessionInfo struct {
	ID          string          `json:"id"`
	PageID      string          `json:"pageId"`
	SiteID      string          `json:"siteId,omitempty"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	Initialized bool            `json:"initialized"`
	Selected    string          `json:"selected,omitempty"`
	Containers  []ContainerInfo `json:"containers"`
}

// ContainerInfo is the item order of one container.
type ContainerInfo struct {
	ID       string   `json:"id"`
	Children []string `json:"children"`
}

// handleWebSocket opens an editing session on ?page=ID. The client is the
// host: it receives the engine's outbound messages and sends inbound ones.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	pageID := r.URL.Query().Get("page")
	if pageID == "" {
		writeError(w, errors.New(errors.ErrCodeRequired, "page is required"))
		return
	}
	page, err := s.repo.Page(r.Context(), pageID)
	if err != nil {
		writeError(w, err)
		return
	}
	src, err := s.repo.RenderPage(r.Context(), pageID)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := dom.ParseString(src)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "parse page %s", pageID))
		return
	}

	sess := session.New(page.ID, page.SiteID, s.ttl)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	logger := s.logger.With("session", sess.ID)
	w.Header().Set(SessionHeader, sess.ID)
	ws, err := channel.Upgrade(w, r, logger)
	if err != nil {
		logger.Warn("websocket upgrade", "err", err)
		_ = s.sessions.Delete(context.Background(), sess.ID)
		return
	}

	engine := composer.New(doc, ws, composer.Options{
		Logger:      logger,
		RemoveFirst: s.removeFirst,
		Indicator:   s.indicator,
		Source: func(ctx context.Context) (string, error) {
			return s.repo.RenderPage(ctx, pageID)
		},
	})

	s.mu.Lock()
	ctx, cancel := context.WithCancel(s.base)
	s.live[sess.ID] = &liveSession{sess: sess, engine: engine, cancel: cancel}
	s.mu.Unlock()
	defer s.endSession(sess.ID, ws)

	_ = engine.Post(func() {
		if err := engine.Init(); err != nil {
			logger.Warn("init", "err", err)
		}
	})
	logger.Info("session started", "page", pageID)
	if err := engine.Serve(ctx, ws); err != nil {
		logger.Warn("session ended", "err", err)
	}
}

func (s *Server) endSession(id string, ws *channel.WebSocket) {
	s.mu.Lock()
	if l, ok := s.live[id]; ok {
		l.cancel()
		delete(s.live, id)
	}
	s.mu.Unlock()
	_ = ws.Close()
	_ = s.sessions.Delete(context.Background(), id)
	s.logger.Info("session closed", "session", id)
}

func (s *Server) lookupSession(r *http.Request) (*liveSession, error) {
	id := chi.URLParam(r, "sid")
	if err := session.ValidateID(id); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "session %q", id)
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	l, ok := s.live[id]
	s.mu.Unlock()
	if sess == nil || !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "no session %q", id)
	}
	sess.Touch(s.ttl)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	info := SessionInfo{ID: l.sess.ID, PageID: l.sess.PageID, SiteID: l.sess.SiteID}
	err = l.engine.Call(r.Context(), func() error {
		info.Initialized = l.engine.Initialized()
		info.Selected = l.engine.Selected()
		for _, c := range l.engine.Containers() {
			info.Containers = append(info.Containers, ContainerInfo{ID: c.ID(), Children: c.Order()})
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if sess, _ := s.sessions.Get(r.Context(), l.sess.ID); sess != nil {
		info.ExpiresAt = sess.ExpiresAt
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var src string
	err = l.engine.Call(r.Context(), func() error {
		src = l.engine.Document().HTML()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(src))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	l.cancel()
	writeOK(w)
}
