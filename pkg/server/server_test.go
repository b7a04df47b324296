package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/rest"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.Repository, *httptest.Server) {
	t.Helper()
	repo := store.NewRepository(store.NewMemoryBackend(), nil)
	require.NoError(t, repo.Seed(context.Background(), store.DemoFixture()))
	srv := New(repo, Options{})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.CloseSessions()
		hs.Close()
	})
	return srv, repo, hs
}

func newAPI(t *testing.T, hs *httptest.Server) *rest.API {
	t.Helper()
	c, err := rest.NewClient(hs.URL, rest.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	return rest.NewAPI(c, nil, nil)
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var se *errors.StatusError
	require.True(t, stderrors.As(err, &se), "got %v", err)
	return se.StatusCode
}

func TestHealthz(t *testing.T) {
	_, _, hs := newTestServer(t)
	resp, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRESTContract(t *testing.T) {
	_, repo, hs := newTestServer(t)
	api := newAPI(t, hs)
	ctx := context.Background()

	comps, err := api.PageModel(ctx, "home-page")
	require.NoError(t, err)
	assert.Len(t, comps, 7)

	tk, err := api.Toolkit(ctx, "basic")
	require.NoError(t, err)
	assert.Len(t, tk, 2)

	created, err := api.Create(ctx, "footer", "tk-text")
	require.NoError(t, err)
	assert.Equal(t, "footer", created.ParentID)

	require.NoError(t, api.UpdateChildren(ctx, "main", []string{"news", "banner"}))
	main, err := repo.Component(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "banner"}, main.Children)

	require.NoError(t, api.Delete(ctx, "footer", created.ID))
	footer, _ := repo.Component(ctx, "footer")
	assert.Empty(t, footer.Children)

	props, err := api.Parameters(ctx, "news")
	require.NoError(t, err)
	require.Len(t, props, 1)
	require.NoError(t, api.SaveParameters(ctx, "news", map[string]string{"pageSize": "20"}))
	props, _ = repo.Parameters(ctx, "news")
	assert.Equal(t, "20", props[0].Value)

	docs, err := api.Documents(ctx, "demo", "news")
	require.NoError(t, err)
	assert.Equal(t, []string{"/content/news/launch", "/content/news/update", "/content/news/archive"}, docs)

	require.NoError(t, api.KeepAlive(ctx, "demo"))

	src, err := api.Page(ctx, "home")
	require.NoError(t, err)
	assert.Contains(t, src, `data-hst-root="home-page"`)
}

func TestRESTErrors(t *testing.T) {
	_, _, hs := newTestServer(t)
	api := newAPI(t, hs)
	ctx := context.Background()

	_, err := api.Parameters(ctx, "ghost")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	err = api.UpdateChildren(ctx, "banner", []string{"news"})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	err = api.SaveParameters(ctx, "banner", map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	err = api.Delete(ctx, "main", "links")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	_, err = api.Page(ctx, "nope")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))
}

func TestPagesListing(t *testing.T) {
	_, _, hs := newTestServer(t)
	resp, err := http.Get(hs.URL + "/pages")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			ID   string `json:"id"`
			Root string `json:"rootId"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "home", body.Data[0].ID)
	assert.Equal(t, "home-page", body.Data[0].Root)
}

func wsURL(hs *httptest.Server, page string) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws?page=" + page
}

// next returns the next message with tag, skipping others.
func next(t *testing.T, ws channel.Receiver, tag channel.Tag) channel.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		m, err := ws.Receive(ctx)
		require.NoError(t, err, "waiting for %s", tag)
		if m.Tag == tag {
			return m
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	srv, _, hs := newTestServer(t)
	ctx := context.Background()

	ws, err := channel.Dial(ctx, wsURL(hs, "home"), nil)
	require.NoError(t, err)
	defer ws.Close()
	sid := ws.Header().Get(SessionHeader)
	require.NotEmpty(t, sid)

	var loaded channel.AppLoadedPayload
	require.NoError(t, next(t, ws, channel.TagAppLoaded).Decode(&loaded))
	assert.Equal(t, "home-page", loaded.RootID)
	assert.Equal(t, 1, srv.Sessions())

	require.NoError(t, ws.Send(ctx, channel.MustMessage(channel.TagDrag,
		channel.DragPayload{ID: "banner", Container: "main", Index: 2})))
	var p channel.RearrangePayload
	require.NoError(t, next(t, ws, channel.TagRearrange).Decode(&p))
	assert.Equal(t, channel.RearrangePayload{ID: "main", Children: []string{"news", "banner"}}, p)

	resp, err := http.Get(hs.URL + "/sessions/" + sid)
	require.NoError(t, err)
	defer resp.Body.Close()
	var info SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "home", info.PageID)
	assert.True(t, info.Initialized)
	assert.Contains(t, info.Containers, ContainerInfo{ID: "main", Children: []string{"news", "banner"}})

	page, err := http.Get(hs.URL + "/sessions/" + sid + "/page")
	require.NoError(t, err)
	defer page.Body.Close()
	assert.Equal(t, http.StatusOK, page.StatusCode)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return srv.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)

	gone, err := http.Get(hs.URL + "/sessions/" + sid)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestWebSocketRequiresPage(t *testing.T) {
	_, _, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(hs.URL + "/ws?page=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(hs.URL + "/sessions/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFindPage(t *testing.T) {
	_, _, hs := newTestServer(t)
	api := newAPI(t, hs)
	ctx := context.Background()

	p, err := api.FindPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "home-page", p.RootID)
	assert.Equal(t, "basic", p.ToolkitID)
	assert.Empty(t, p.HTML)

	_, err = api.FindPage(ctx, "about")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
