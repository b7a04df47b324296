package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/properties"
	"github.com/matzehuels/pagecomposer/pkg/shell"
)

// A host shell on the far side of the WebSocket edits the page through the
// REST contract while the session engine follows.
func TestShellDrivesRemoteEngine(t *testing.T) {
	_, repo, hs := newTestServer(t)
	api := newAPI(t, hs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := channel.Dial(ctx, wsURL(hs, "home"), nil)
	require.NoError(t, err)
	defer ws.Close()

	sh := shell.New(api, ws, shell.Options{Panel: properties.NewPanel(api)})
	done := make(chan error, 1)
	go func() { done <- sh.Serve(ctx, ws) }()

	require.Eventually(t, func() bool { return len(sh.Components()) == 7 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "demo", sh.Page().SiteID)

	require.NoError(t, sh.Click(ctx, "banner"))
	v := sh.Panel().View()
	assert.Equal(t, properties.StateReady, v.State)
	require.Len(t, v.Fields, 2)
	assert.Equal(t, "Title *", v.Fields[0].Label)
	assert.Len(t, v.Fields[1].Options, 3)

	require.NoError(t, ws.Send(ctx, channel.MustMessage(channel.TagDrag,
		channel.DragPayload{ID: "banner", Container: "sidebar", Index: 0})))

	require.Eventually(t, func() bool {
		sidebar, err := repo.Component(ctx, "sidebar")
		if err != nil || len(sidebar.Children) != 2 || sidebar.Children[0] != "banner" {
			return false
		}
		main, err := repo.Component(ctx, "main")
		return err == nil && len(main.Children) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		c, ok := sh.Component("banner")
		return ok && c.ParentID == "sidebar" && !sh.Reloading()
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, sh.Remove(ctx, "links"))
	sidebar, err := repo.Component(ctx, "sidebar")
	require.NoError(t, err)
	assert.Equal(t, []string{"banner"}, sidebar.Children)

	cancel()
	assert.NoError(t, <-done)
}
