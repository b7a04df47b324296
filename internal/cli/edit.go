package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/composer"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/properties"
	"github.com/matzehuels/pagecomposer/pkg/rest"
	"github.com/matzehuels/pagecomposer/pkg/shell"
)

// editCommand creates the edit command that opens the interactive editor.
func (c *CLI) editCommand() *cobra.Command {
	var (
		backend string
		remote  bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "edit [page-id]",
		Short: "Edit a page interactively",
		Long: `Edit a page interactively.

The page markup is loaded from the backend and its containers are
discovered by an in-process editing engine. Items can be selected, moved
within and between containers, added from the toolkit, removed, and their
properties edited. Every change is stored through the backend's REST
endpoints.

With --remote the engine runs on the backend instead, in an editing
session opened over WebSocket.

Logs are written to --log-file while the editor owns the terminal.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePageIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logFile == "" {
				c.Logger.SetOutput(io.Discard)
			} else {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				c.Logger.SetOutput(f)
			}
			return c.runEdit(cmd.Context(), args[0], backend, remote)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "backend URL (default from config)")
	cmd.Flags().BoolVar(&remote, "remote", false, "run the engine in a backend editing session")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, pageID, backend string, remote bool) error {
	api, err := c.newAPI(ctx, backend, false)
	if err != nil {
		return err
	}
	page, err := api.FindPage(ctx, pageID)
	if err != nil {
		return err
	}

	var sess *editSession
	if remote {
		sess, err = c.startRemote(ctx, api, page)
	} else {
		sess, err = c.startLocal(ctx, api, page)
	}
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(newEditorModel(sess.ctx, sess, page), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

// =============================================================================
// Editing Session
// =============================================================================

// editSession connects a host shell to an editing engine.
type editSession struct {
	ctx   context.Context
	shell *shell.Shell
	// engine receives inbound messages such as drags.
	engine channel.Sender

	logger *log.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closer []io.Closer
}

// Close stops serving and waits for the session goroutines.
func (s *editSession) Close() {
	s.cancel()
	for _, cl := range s.closer {
		_ = cl.Close()
	}
	s.wg.Wait()
}

// serve runs fn until the session ends.
func (s *editSession) serve(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.ctx); err != nil {
			s.logger.Warn("serve", "part", name, "err", err)
		}
	}()
}

func (c *CLI) newSession(ctx context.Context, api *rest.API, out channel.Sender) *editSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &editSession{ctx: ctx, engine: out, logger: c.Logger, cancel: cancel}

	var sh *shell.Shell
	panel := properties.NewPanel(api,
		properties.WithLogger(c.Logger),
		properties.OnSaved(func(ctx context.Context) error { return sh.Reload(ctx) }),
	)
	sh = shell.New(api, out, shell.Options{Logger: c.Logger, Panel: panel})
	s.shell = sh

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sh.KeepAlive(ctx, c.Config.Backend.KeepAlive)
	}()
	return s
}

// startLocal runs the engine in-process over a pipe. The page markup is
// fetched again on every reload.
func (c *CLI) startLocal(ctx context.Context, api *rest.API, page pagemodel.Page) (*editSession, error) {
	src, err := api.Page(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("load page %s: %w", page.ID, err)
	}
	doc, err := dom.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", page.ID, err)
	}

	host, engineEnd := channel.Pipe()
	engine := composer.New(doc, engineEnd, composer.Options{
		Logger:      c.Logger.With("part", "engine"),
		Indicator:   c.Config.Overlay,
		RemoveFirst: c.Config.Server.RemoveFirst,
		Source: func(ctx context.Context) (string, error) {
			return api.Page(ctx, page.ID)
		},
	})

	s := c.newSession(ctx, api, host)
	s.closer = append(s.closer, host, engineEnd)
	s.serve("engine", func(ctx context.Context) error { return engine.Serve(ctx, engineEnd) })
	s.serve("shell", func(ctx context.Context) error { return s.shell.Serve(ctx, host) })
	_ = engine.Post(func() {
		if err := engine.Init(); err != nil {
			c.Logger.Warn("init", "err", err)
		}
	})
	return s, nil
}

// startRemote opens an editing session on the backend.
func (c *CLI) startRemote(ctx context.Context, api *rest.API, page pagemodel.Page) (*editSession, error) {
	target, err := wsURL(api.Client().Base(), page.ID)
	if err != nil {
		return nil, err
	}
	ws, err := channel.Dial(ctx, target, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	c.Logger.Debug("session opened", "url", target)

	s := c.newSession(ctx, api, ws)
	s.closer = append(s.closer, ws)
	s.serve("shell", func(ctx context.Context) error { return s.shell.Serve(ctx, ws) })
	return s, nil
}

// wsURL returns the WebSocket endpoint of a page on the backend at base.
func wsURL(base, pageID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"page": {pageID}}.Encode()
	return u.String(), nil
}
