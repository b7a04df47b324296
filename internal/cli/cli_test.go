package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/config"
	"github.com/matzehuels/pagecomposer/pkg/server"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// newTestCLI returns a CLI against a demo backend.
func newTestCLI(t *testing.T) (*CLI, *store.Repository, *httptest.Server) {
	t.Helper()
	repo := store.NewRepository(store.NewMemoryBackend(), nil)
	require.NoError(t, repo.Seed(context.Background(), store.DemoFixture()))
	srv := server.New(repo, server.Options{})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.CloseSessions()
		hs.Close()
	})

	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.Config.Backend.URL = hs.URL
	c.Config.Backend.Retries = 1
	c.Config.Cache.Backend = config.CacheNone
	return c, repo, hs
}

func TestRootCommand(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	root := c.RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"inspect", "edit", "serve", "tree", "cache", "completion"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestLoadConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n[backend]\nurl = \"http://example.test\"\n"), 0o644))

	var buf bytes.Buffer
	c := New(&buf, log.InfoLevel)
	c.configPath = path
	require.NoError(t, c.loadConfig())
	assert.Equal(t, "http://example.test", c.Config.Backend.URL)
	assert.Equal(t, log.WarnLevel, c.Logger.GetLevel())

	c.verbose = true
	require.NoError(t, c.loadConfig())
	assert.Equal(t, log.DebugLevel, c.Logger.GetLevel())

	c.configPath = filepath.Join(t.TempDir(), "missing.toml")
	assert.Error(t, c.loadConfig())
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"http://localhost:8080/", "ws://localhost:8080/ws?page=home"},
		{"https://cms.example.com/site/", "wss://cms.example.com/site/ws?page=home"},
	}
	for _, tt := range tests {
		got, err := wsURL(tt.base, "home")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"svg"}, parseFormats(""))
	assert.Equal(t, []string{"dot", "png"}, parseFormats("dot,png"))
	assert.NoError(t, validateFormats([]string{"svg", "dot", "pdf", "png"}))
	assert.Error(t, validateFormats([]string{"gif"}))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "home", basePath("", "home"))
	assert.Equal(t, "out/page", basePath("out/page.svg", "home"))
	assert.Equal(t, "out/page.svg", outputPath("out/page.svg", "out/page", "svg", 1))
	assert.Equal(t, "out/page.dot", outputPath("out/page.svg", "out/page", "dot", 2))
	assert.Equal(t, "home.svg", outputPath("", "home", "svg", 1))
}

func TestTreeFromFixture(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	out := filepath.Join(t.TempDir(), "home.dot")

	err := c.runTree(context.Background(), "home", treeOpts{
		output:  out,
		formats: []string{"dot"},
		fixture: "demo",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	dot := string(data)
	assert.Contains(t, dot, `"main" -> "banner";`)
	assert.Contains(t, dot, `"sidebar" -> "links";`)
	assert.Less(t, strings.Index(dot, `"main" -> "banner"`), strings.Index(dot, `"main" -> "news"`))
}

func TestTreeFromBackend(t *testing.T) {
	c, _, _ := newTestCLI(t)
	comps, err := c.loadModel(context.Background(), "home", treeOpts{})
	require.NoError(t, err)
	assert.Len(t, comps, 7)
	assert.Equal(t, "home-page", comps[0].ID)
}

func TestComponentTable(t *testing.T) {
	c, _, _ := newTestCLI(t)
	comps, err := c.loadModel(context.Background(), "home", treeOpts{})
	require.NoError(t, err)

	depth := componentDepths(comps)
	assert.Equal(t, 0, depth["home-page"])
	assert.Equal(t, 1, depth["main"])
	assert.Equal(t, 2, depth["banner"])

	out := componentTable(comps)
	assert.Contains(t, out, "News List")
	assert.Contains(t, out, "HST.vBox")
}

func TestInspect(t *testing.T) {
	c, _, _ := newTestCLI(t)
	ctx := context.Background()
	assert.NoError(t, c.runInspect(ctx, "home", "", true, true))
	assert.NoError(t, c.runListPages(ctx, "", true))
	assert.Error(t, c.runInspect(ctx, "about", "", true, true))
}

func TestOpenStoreDefaults(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	b, err := c.openStore(context.Background())
	require.NoError(t, err)
	_, ok := b.(*store.MemoryBackend)
	assert.True(t, ok)

	c.Config.Sessions.Backend = config.SessionFile
	c.Config.Sessions.Dir = t.TempDir()
	s, err := c.openSessions()
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestListenHost(t *testing.T) {
	assert.Equal(t, "localhost:8080", listenHost(":8080"))
	assert.Equal(t, "0.0.0.0:9000", listenHost("0.0.0.0:9000"))
}
