package rest

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetry(3, time.Millisecond), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	c, err := NewClient("http://example.com/cms")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/cms/_rp/x./parameters", c.URL(ParametersPath("x")))
	assert.Equal(t, "http://example.com/cms/_rp/x./parameters", c.URL("/"+ParametersPath("x")))
}

func TestClientGetJSON(t *testing.T) {
	var gotHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Accept")
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/_rp/c1./parameters", r.URL.Path)
		_, _ = w.Write([]byte(`{"properties":[{"name":"title","value":"x","required":true,"type":"textfield"}]}`))
	})

	api := NewAPI(c, nil, nil)
	props, err := api.Parameters(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "title", props[0].Name)
	assert.True(t, props[0].Required)
	assert.Equal(t, "application/json", gotHeader)
}

func TestClientStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	err := c.GetJSON(context.Background(), "missing", &struct{}{})
	var se *errors.StatusError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "Not Found", se.Status)
	assert.Contains(t, err.Error(), "statusCode: 404")
	assert.Equal(t, errors.ErrCodeNotFound, se.Code())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "flaky", &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.GetJSON(context.Background(), "bad", nil)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return stderrors.New("fatal")
	})
	assert.EqualError(t, err, "fatal")
	assert.Equal(t, 1, calls)

	calls = 0
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: stderrors.New("transient")}
	})
	assert.EqualError(t, err, "transient")
	assert.Equal(t, 3, calls)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = Retry(cctx, 3, time.Hour, func() error {
		return &RetryableError{Err: stderrors.New("transient")}
	})
	assert.ErrorIs(t, err, context.Canceled)
}
