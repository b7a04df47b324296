package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/cache"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

func TestDocumentsAreCached(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/_rp/site./documents/news", r.URL.Path)
		_ = json.NewEncoder(w).Encode(pagemodel.ListResponse[pagemodel.Document]{
			Success: true,
			Data:    []pagemodel.Document{{Path: "/news/a"}, {Path: "/news/b"}},
		})
	})
	api := NewAPI(c, cache.NewMemoryCache(), nil)

	for range 2 {
		paths, err := api.Documents(context.Background(), "site", "news")
		require.NoError(t, err)
		assert.Equal(t, []string{"/news/a", "/news/b"}, paths)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestSaveParametersPostsForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("title"))
		assert.Equal(t, "", r.PostForm.Get("empty"))
		assert.Contains(t, r.PostForm, "empty")
	})
	api := NewAPI(c, nil, nil)
	require.NoError(t, api.SaveParameters(context.Background(), "c1", map[string]string{"title": "hello", "empty": ""}))
}

func TestPageModelAndUpdate(t *testing.T) {
	var updated pagemodel.Component
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/_rp/p1./pagemodel":
			_ = json.NewEncoder(w).Encode(pagemodel.ListResponse[pagemodel.Component]{
				Success: true,
				Data:    []pagemodel.Component{{ID: "c1", Type: pagemodel.TypeContainer, Children: []string{"i1"}}},
			})
		case "/_rp/c1./update":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
		case "/_rp/c1./delete/i1":
			assert.Equal(t, http.MethodGet, r.Method)
		default:
			http.NotFound(w, r)
		}
	})
	api := NewAPI(c, cache.NewMemoryCache(), nil)
	ctx := context.Background()

	model, err := api.PageModel(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, model, 1)

	cached, ok := api.CachedPageModel(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, model, cached)

	require.NoError(t, api.UpdateChildren(ctx, "c1", []string{"i2", "i1"}))
	assert.Equal(t, []string{"i2", "i1"}, updated.Children)

	require.NoError(t, api.Delete(ctx, "c1", "i1"))
}
