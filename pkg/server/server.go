// Package server is the development backend of the page composer.
//
// It serves the REST contract the editor talks to (page models, toolkits,
// component creation, reordering, removal, parameters and documents) over a
// [store.Repository], renders page markup, and hosts editing sessions: a
// WebSocket client on /ws gets its own headless engine over the page, which
// it drives with inbound messages while the engine reports back.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pagecomposer/pkg/composer"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
	"github.com/matzehuels/pagecomposer/pkg/session"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// Default server settings.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultCleanupInterval = 10 * time.Minute
)

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// Sessions stores editing sessions. Defaults to an in-memory store.
	Sessions session.Store
	// SessionTTL defaults to session.DefaultTTL.
	SessionTTL time.Duration
	// RemoveFirst is passed to every session engine.
	RemoveFirst bool
	// Indicator sizes the drop indicators of session engines.
	Indicator geometry.Config
}

// Server serves the REST contract and editing sessions.
type Server struct {
	repo        *store.Repository
	sessions    session.Store
	logger      *log.Logger
	ttl         time.Duration
	removeFirst bool
	indicator   geometry.Config
	router      chi.Router

	mu   sync.Mutex
	base context.Context
	live map[string]*liveSession
}

type liveSession struct {
	sess   *session.Session
	engine *composer.Engine
	cancel context.CancelFunc
}

// New returns a server over repo.
func New(repo *store.Repository, opts Options) *Server {
	s := &Server{
		repo:        repo,
		sessions:    opts.Sessions,
		logger:      opts.Logger,
		ttl:         opts.SessionTTL,
		removeFirst: opts.RemoveFirst,
		indicator:   opts.Indicator,
		base:        context.Background(),
		live:        make(map[string]*liveSession),
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore()
	}
	if s.ttl <= 0 {
		s.ttl = session.DefaultTTL
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})

	r.Get("/pages", s.handlePages)
	r.Get("/pages/{id}", s.handlePage)

	r.Route("/_rp", func(r chi.Router) {
		r.Get("/{id}./pagemodel", s.handlePageModel)
		r.Get("/{id}./toolkit", s.handleToolkit)
		r.Post("/{id}./create/{item}", s.handleCreate)
		r.Post("/{id}./update", s.handleUpdate)
		r.Get("/{id}./delete/{item}", s.handleDelete)
		r.Get("/{id}./parameters", s.handleParameters)
		r.Post("/{id}./parameters", s.handleSaveParameters)
		r.Get("/{id}./documents/{docType}", s.handleDocuments)
		r.Get("/{id}./keepalive", s.handleKeepAlive)
	})

	r.Get("/ws", s.handleWebSocket)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Get("/page", s.handleSessionPage)
		r.Delete("/", s.handleCloseSession)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and closes every editing session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.cleanup(ctx, DefaultCleanupInterval)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.CloseSessions()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cleanup(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup", "err", err)
			}
		}
	}
}

// CloseSessions ends every live editing session.
func (s *Server) CloseSessions() {
	s.mu.Lock()
	live := make([]*liveSession, 0, len(s.live))
	for _, l := range s.live {
		live = append(live, l)
	}
	s.mu.Unlock()
	for _, l := range live {
		l.cancel()
	}
}

// Sessions returns the number of live editing sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
