package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/pagecomposer/pkg/observability"
)

// sharedScope holds entries written without a scope prefix.
const sharedScope = "shared"

// FileCache keeps entries on disk for the CLI. Entries are laid out as
// <dir>/<scope>/<kind>/<hash>.json, where scope comes from a [ScopePrefix]
// (one directory per backend) and kind is the key type (pagemodel, toolkit,
// documents).
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache in dir, creating it when missing.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get implements Cache. Expired and unreadable entries are removed and
// reported as evictions.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	entry, err := readEntry(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		_ = os.Remove(path)
		observability.Cache().OnCacheEvict(ctx, keyType(key))
		return nil, false, nil
	}
	if entry.Key != key || entry.expired(time.Now()) {
		_ = os.Remove(path)
		observability.Cache().OnCacheEvict(ctx, keyType(key))
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set implements Cache.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Key: key, Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Delete implements Cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close implements Cache.
func (c *FileCache) Close() error { return nil }

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	return c.clearDir(c.dir)
}

// ClearScope removes the entries written under prefix, as returned by
// ScopePrefix, and returns how many were removed.
func (c *FileCache) ClearScope(prefix string) (int, error) {
	dir := filepath.Join(c.dir, scopeDir(prefix))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	return c.clearDir(dir)
}

func (c *FileCache) clearDir(root string) (int, error) {
	count := 0
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != c.dir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if filepath.Ext(path) == ".json" && os.Remove(path) == nil {
			count++
		}
		return nil
	})
	// Deepest first so parents are empty when their turn comes.
	slices.Reverse(dirs)
	for _, d := range dirs {
		_ = os.Remove(d)
	}
	return count, err
}

// ScopeStats counts the live entries of one scope by kind.
type ScopeStats struct {
	Scope   string
	Entries map[string]int
	Bytes   int64
	Expired int
}

// Stats walks the cache and counts entries per scope. Scopes are sorted by
// name.
func (c *FileCache) Stats() ([]ScopeStats, error) {
	scopes, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []ScopeStats
	for _, s := range scopes {
		if !s.IsDir() {
			continue
		}
		st := ScopeStats{Scope: s.Name(), Entries: map[string]int{}}
		root := filepath.Join(c.dir, s.Name())
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}
			entry, err := readEntry(path)
			if err != nil || entry.expired(now) {
				st.Expired++
				return nil
			}
			kind := filepath.Base(filepath.Dir(path))
			st.Entries[kind]++
			st.Bytes += int64(len(entry.Data))
			return nil
		})
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b ScopeStats) int { return strings.Compare(a.Scope, b.Scope) })
	return out, nil
}

func readEntry(path string) (fileEntry, error) {
	var entry fileEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(data, &entry)
	return entry, err
}

// path maps a key to <scope>/<kind>/<hash>.json.
func (c *FileCache) path(key string) string {
	scope, rest := splitScope(key)
	kind, _, _ := strings.Cut(rest, ":")
	if kind == "" || kind == rest {
		kind = "other"
	}
	return filepath.Join(c.dir, scope, kind, Hash([]byte(key))[:32]+".json")
}

// splitScope separates a ScopePrefix from key. Keys without one belong to
// the shared scope.
func splitScope(key string) (scope, rest string) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) == 3 && isScopeHash(parts[1]) {
		return parts[0] + "-" + parts[1], parts[2]
	}
	return sharedScope, key
}

func scopeDir(prefix string) string {
	scope, _ := splitScope(prefix)
	return scope
}

func isScopeHash(s string) bool {
	if len(s) != scopeHashLen {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

var _ Cache = (*FileCache)(nil)
