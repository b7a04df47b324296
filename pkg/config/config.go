// Package config loads the pagecomposer configuration file.
//
// Configuration is TOML, read from the path given with --config or from
// $XDG_CONFIG_HOME/pagecomposer/config.toml (~/.config/pagecomposer/ when
// XDG_CONFIG_HOME is unset). A missing default file is not an error; the
// defaults from [Default] apply. Environment variables override addresses:
//
//	PAGECOMPOSER_ADDR         server.addr
//	PAGECOMPOSER_BACKEND      backend.url
//	PAGECOMPOSER_STORE        store.backend
//	PAGECOMPOSER_REDIS_ADDR   store.redis.addr and cache.redis.addr
//	PAGECOMPOSER_MONGO_URI    store.mongo.uri
//	PAGECOMPOSER_LOG_LEVEL    log.level
//
// Example:
//
//	[server]
//	addr = ":8080"
//	session_ttl = "2h"
//
//	[store]
//	backend = "redis"
//
//	[store.redis]
//	addr = "localhost:6379"
//
//	[overlay]
//	threshold_high = 0.8
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
	"github.com/matzehuels/pagecomposer/pkg/rest"
	"github.com/matzehuels/pagecomposer/pkg/session"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	appName   = "pagecomposer"
	fileName  = "config.toml"
	envPrefix = "PAGECOMPOSER_"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionFile   = "file"
	SessionRedis  = "redis"
)

// =============================================================================
// Config
// =============================================================================

// Config is the complete configuration.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Backend    BackendConfig    `toml:"backend"`
	Store      StoreConfig      `toml:"store"`
	Cache      CacheConfig      `toml:"cache"`
	Sessions   SessionsConfig   `toml:"sessions"`
	Overlay    geometry.Config  `toml:"overlay"`
	Properties PropertiesConfig `toml:"properties"`

	// Path is the file the configuration was loaded from, if any.
	Path string `toml:"-"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// ServerConfig configures `pagecomposer serve`.
type ServerConfig struct {
	Addr       string        `toml:"addr"`
	SessionTTL time.Duration `toml:"session_ttl"`
	// RemoveFirst makes session engines send remove before receive on
	// cross-container drags.
	RemoveFirst bool `toml:"remove_first"`
	// Fixture seeds the store from a TOML fixture file on start.
	Fixture string `toml:"fixture"`
}

// BackendConfig configures the REST client used by `inspect` and `edit`.
type BackendConfig struct {
	URL        string        `toml:"url"`
	Timeout    time.Duration `toml:"timeout"`
	Retries    int           `toml:"retries"`
	RetryDelay time.Duration `toml:"retry_delay"`
	KeepAlive  time.Duration `toml:"keep_alive"`
}

// StoreConfig selects the page-model store of the dev server.
type StoreConfig struct {
	Backend string      `toml:"backend"`
	Redis   RedisConfig `toml:"redis"`
	Mongo   MongoConfig `toml:"mongo"`
}

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// MongoConfig addresses a MongoDB deployment.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// CacheConfig selects the response cache of the REST client.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
}

// SessionsConfig selects where the dev server keeps editing sessions.
type SessionsConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
}

// PropertiesConfig tunes the properties panel.
type PropertiesConfig struct {
	// DocumentsTTL bounds how long combo options are reused.
	DocumentsTTL time.Duration `toml:"documents_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Addr: ":8080", SessionTTL: session.DefaultTTL},
		Backend: BackendConfig{
			URL:        "http://localhost:8080",
			Timeout:    10 * time.Second,
			Retries:    3,
			RetryDelay: 500 * time.Millisecond,
			KeepAlive:  5 * time.Minute,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: store.DefaultRedisPrefix},
			Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: store.DefaultMongoDatabase},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "pagecomposer:cache:"},
		},
		Sessions: SessionsConfig{
			Backend: SessionMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Overlay:    geometry.DefaultConfig(),
		Properties: PropertiesConfig{DocumentsTTL: rest.DefaultDocumentsTTL},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the configuration. An empty path reads the default file when it
// exists. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		def, err := DefaultPath()
		if err == nil {
			path = def
		}
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults. Unknown keys are rejected.
func Parse(data string) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := c.decode(string(data)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return nil
}

func (c *Config) decode(data string) error {
	md, err := toml.Decode(data, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides addresses from PAGECOMPOSER_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst ...*string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			for _, d := range dst {
				*d = v
			}
		}
	}
	set("ADDR", &c.Server.Addr)
	set("BACKEND", &c.Backend.URL)
	set("STORE", &c.Store.Backend)
	set("REDIS_ADDR", &c.Store.Redis.Addr, &c.Cache.Redis.Addr, &c.Sessions.Redis.Addr)
	set("MONGO_URI", &c.Store.Mongo.URI)
	set("LOG_LEVEL", &c.Log.Level)
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid log level %q", c.Log.Level)
	}
	if !slices.Contains([]string{StoreMemory, StoreRedis, StoreMongo}, c.Store.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid store backend %q", c.Store.Backend)
	}
	if !slices.Contains([]string{CacheFile, CacheMemory, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid cache backend %q", c.Cache.Backend)
	}
	if !slices.Contains([]string{SessionMemory, SessionFile, SessionRedis}, c.Sessions.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid session backend %q", c.Sessions.Backend)
	}
	if c.Overlay.ThresholdHigh < 0 || c.Overlay.ThresholdHigh >= 1 || c.Overlay.ThresholdLow < 0 || c.Overlay.ThresholdLow >= 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "overlay thresholds must be in [0, 1)")
	}
	if c.Backend.Retries < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "backend retries must be at least 1")
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the config file location using the XDG standard
// (~/.config/pagecomposer/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// CacheDir returns the cache directory: the configured one, or the XDG
// cache location (~/.cache/pagecomposer/).
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return xdgCacheDir()
}

// SessionDir returns the directory of the file session store.
func (c Config) SessionDir() (string, error) {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir, nil
	}
	dir, err := xdgCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

func xdgCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
