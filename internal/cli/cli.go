// Package cli implements the pagecomposer command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/buildinfo"
	"github.com/matzehuels/pagecomposer/pkg/cache"
	"github.com/matzehuels/pagecomposer/pkg/config"
	"github.com/matzehuels/pagecomposer/pkg/rest"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "pagecomposer"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Pagecomposer edits page layouts by drag and drop",
		Long:         `Pagecomposer is a drag-and-drop page composer: it discovers the containers of a rendered page, lets you reorder, add and remove their items, and keeps the backend's page model in sync.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pagecomposer/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies its log level unless
// --verbose was given.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if c.verbose {
		c.SetLogLevel(LogDebug)
	} else {
		c.SetLogLevel(parseLevel(cfg.Log.Level))
	}
	if cfg.Path != "" {
		c.Logger.Debug("config loaded", "path", cfg.Path)
	}
	return nil
}

// =============================================================================
// Backend Factory
// =============================================================================

// newAPI creates the REST API of the configured backend. An empty url uses
// the configured one.
func (c *CLI) newAPI(ctx context.Context, url string, noCache bool) (*rest.API, error) {
	if url == "" {
		url = c.Config.Backend.URL
	}
	b := c.Config.Backend
	client, err := rest.NewClient(url,
		rest.WithLogger(c.Logger),
		rest.WithRetry(b.Retries, b.RetryDelay),
		rest.WithTimeout(b.Timeout),
	)
	if err != nil {
		return nil, err
	}
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	api := rest.NewAPI(client, ch, cache.NewScopedKeyer(nil, backendScope(client)))
	api.SetCacheTTL(c.Config.Properties.DocumentsTTL)
	return api, nil
}

// backendScope isolates one backend's entries in a shared cache.
func backendScope(client *rest.Client) string {
	return cache.ScopePrefix("backend", client.Base())
}

// newCache opens the configured response cache. A nil cache disables
// caching, and failures fall back to it.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return nil, nil
	}
	cc := c.Config.Cache
	switch cc.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			Prefix:   cc.Redis.Prefix,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
			return nil, nil
		}
		return rc, nil
	}
	dir, err := c.Config.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return nil, nil
	}
	return cache.NewFileCache(dir)
}
