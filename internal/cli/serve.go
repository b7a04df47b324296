package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/config"
	"github.com/matzehuels/pagecomposer/pkg/server"
	"github.com/matzehuels/pagecomposer/pkg/session"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// serveCommand creates the serve command that runs the development backend.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		demo    bool
		fixture string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run the development backend.

The backend serves the REST endpoints the editor talks to, renders page
markup, and hosts editing sessions over WebSocket (/ws?page=ID). The page
model is kept in the store selected in the config (memory, redis or mongo).

Use --demo to seed the store with the built-in demo site, or --fixture to
seed it from a TOML fixture file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			if fixture == "" {
				fixture = c.Config.Server.Fixture
			}
			return c.runServe(cmd.Context(), addr, demo, fixture)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&demo, "demo", false, "seed the store with the demo site")
	cmd.Flags().StringVar(&fixture, "fixture", "", "seed the store from a fixture file")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, demo bool, fixture string) error {
	backend, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	repo := store.NewRepository(backend, c.Logger)
	if demo {
		if err := repo.Seed(ctx, store.DemoFixture()); err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
		printSuccess("Seeded demo site")
		printNextStep("Edit the demo page", "pagecomposer edit home --backend http://"+listenHost(addr))
	}
	if fixture != "" {
		fx, err := store.LoadFixture(fixture)
		if err != nil {
			return err
		}
		if err := repo.Seed(ctx, fx); err != nil {
			return fmt.Errorf("seed %s: %w", fixture, err)
		}
		printSuccess("Seeded %s", fixture)
	}

	sessions, err := c.openSessions()
	if err != nil {
		return err
	}
	defer sessions.Close()

	srv := server.New(repo, server.Options{
		Logger:      c.Logger,
		Sessions:    sessions,
		SessionTTL:  c.Config.Server.SessionTTL,
		RemoveFirst: c.Config.Server.RemoveFirst,
		Indicator:   c.Config.Overlay,
	})
	printKeyValue("Store", c.Config.Store.Backend)
	printKeyValue("Sessions", c.Config.Sessions.Backend)
	printKeyValue("Listening", addr)
	return srv.ListenAndServe(ctx, addr)
}

// openStore connects the configured page-model store.
func (c *CLI) openStore(ctx context.Context) (store.Backend, error) {
	sc := c.Config.Store
	switch sc.Backend {
	case config.StoreRedis:
		return store.DialRedis(ctx, sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB, sc.Redis.Prefix)
	case config.StoreMongo:
		return store.DialMongo(ctx, sc.Mongo.URI, sc.Mongo.Database)
	}
	return store.NewMemoryBackend(), nil
}

// openSessions opens the configured session store.
func (c *CLI) openSessions() (session.Store, error) {
	sc := c.Config.Sessions
	switch sc.Backend {
	case config.SessionFile:
		dir, err := c.Config.SessionDir()
		if err != nil {
			return nil, err
		}
		return session.NewFileStore(dir)
	case config.SessionRedis:
		return session.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})), nil
	}
	return session.NewMemoryStore(), nil
}

// listenHost turns a listen address into one a client can dial.
func listenHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
