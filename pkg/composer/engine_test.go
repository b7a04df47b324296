package composer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/widget"
)

const page = `<html><body>
<div id="C1" data-hst-type="HST.UnorderedList" data-box="0,0,200,100">
  <ul class="hst-container">
    <li class="hst-container-item"><div id="I1" data-hst-type="HST.Item" data-box="0,0,200,50">one</div></li>
    <li class="hst-container-item"><div id="I2" data-hst-type="HST.Item" data-box="0,50,200,50">two</div></li>
  </ul>
</div>
<div id="X" data-hst-type="HST.Carousel"></div>
<div id="C2" data-hst-type="HST.vBox" data-box="300,0,200,100"><div class="hst-container"></div></div>
</body></html>`

func newEngine(t *testing.T) (*Engine, *channel.Recorder) {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	rec := channel.NewRecorder()
	e := New(doc, rec, Options{})
	err = e.Init()
	require.True(t, errors.Is(err, errors.ErrCodeUnknownTypeTag), "got %v", err)
	rec.Reset()
	return e, rec
}

func rearranges(t *testing.T, rec *channel.Recorder) []channel.RearrangePayload {
	t.Helper()
	var out []channel.RearrangePayload
	for _, m := range rec.Tagged(channel.TagRearrange) {
		var p channel.RearrangePayload
		require.NoError(t, m.Decode(&p))
		out = append(out, p)
	}
	return out
}

func mustContainer(t *testing.T, e *Engine, id string) *widget.Container {
	t.Helper()
	c, err := e.Container(id)
	require.NoError(t, err)
	return c
}

func TestInitSkipsUnknownTypes(t *testing.T) {
	e, _ := newEngine(t)

	cs := e.Containers()
	require.Len(t, cs, 2)
	assert.Equal(t, "C1", cs[0].ID())
	assert.Equal(t, "C2", cs[1].ID())
	assert.Equal(t, []string{"I1", "I2"}, cs[0].Order())
	assert.True(t, cs[1].Empty())
	assert.Len(t, e.Surface().Lists(), 2)

	require.NotNil(t, e.Indicator())
	assert.True(t, e.Indicator().Hidden())
	assert.True(t, e.Initialized())
}

func TestReinitDoesNotDuplicateOverlays(t *testing.T) {
	e, _ := newEngine(t)
	count := func() int {
		els, err := e.Document().Find("." + widget.ClassOverlay)
		require.NoError(t, err)
		return len(els)
	}
	before := count()
	require.Equal(t, 4, before)

	_ = e.Init()
	assert.Equal(t, before, count())

	placeholders, err := e.Document().Find("." + widget.ClassEmptyItem)
	require.NoError(t, err)
	assert.Len(t, placeholders, 1)
}

func TestTeardownForgetsWidgets(t *testing.T) {
	e, _ := newEngine(t)
	e.Teardown()

	assert.False(t, e.Initialized())
	assert.Zero(t, e.Registry().Len())
	assert.Empty(t, e.Surface().Lists())
	assert.Nil(t, e.Document().ElementByID(IndicatorID))
}

func TestDragWithinContainer(t *testing.T) {
	e, rec := newEngine(t)

	require.NoError(t, e.Drag("I2", "C1", 0))

	got := rearranges(t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "C1", got[0].ID)
	assert.Equal(t, []string{"I2", "I1"}, got[0].Children)
	assert.Equal(t, []string{"I2", "I1"}, mustContainer(t, e, "C1").Order())

	items, err := e.Document().Find("#C1 li > [data-hst-type]")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "I2", items[0].ID())
	assert.Equal(t, "I1", items[1].ID())
}

func TestDragToSameIndexIsQuiet(t *testing.T) {
	e, rec := newEngine(t)

	require.NoError(t, e.Drag("I1", "C1", 0))

	assert.Empty(t, rec.Tagged(channel.TagRearrange))
	assert.Equal(t, []string{"I1", "I2"}, mustContainer(t, e, "C1").Order())
}

func TestDragAcrossContainers(t *testing.T) {
	for _, removeFirst := range []bool{false, true} {
		doc, err := dom.ParseString(page)
		require.NoError(t, err)
		rec := channel.NewRecorder()
		e := New(doc, rec, Options{RemoveFirst: removeFirst})
		_ = e.Init()
		rec.Reset()

		require.NoError(t, e.Drag("I1", "C2", 0))

		c1, c2 := mustContainer(t, e, "C1"), mustContainer(t, e, "C2")
		assert.Equal(t, []string{"I2"}, c1.Order())
		assert.Equal(t, []string{"I1"}, c2.Order())
		assert.False(t, c2.Empty())
		assert.True(t, c2.Element().Contains(doc.ElementByID("I1")))

		byID := map[string][]string{}
		for _, p := range rearranges(t, rec) {
			byID[p.ID] = p.Children
		}
		assert.Equal(t, map[string][]string{"C1": {"I2"}, "C2": {"I1"}}, byID)

		owner, err := e.Owner("I1")
		require.NoError(t, err)
		assert.Equal(t, "C2", owner.ID())
	}
}

func TestDragLeavesDropIndicatorHidden(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.Drag("I2", "C1", 0))
	assert.True(t, e.Indicator().Hidden())
	for _, c := range e.Containers() {
		assert.Equal(t, widget.PhaseIdle, c.Phase())
		assert.False(t, c.Element().HasClass(widget.ClassHighlight))
	}
}

func TestDragUnknownItem(t *testing.T) {
	e, _ := newEngine(t)
	err := e.Drag("nope", "C1", 0)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestNewTemporaryID(t *testing.T) {
	a, b := NewTemporaryID(), NewTemporaryID()
	assert.True(t, strings.HasPrefix(a, TemporaryPrefix))
	assert.NotEqual(t, a, b)
}

func TestServe(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	rec := channel.NewRecorder()
	e := New(doc, rec, Options{})

	host, engineSide := channel.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx, engineSide) }()

	send := func(tag channel.Tag, payload any) {
		require.NoError(t, host.Send(ctx, channel.MustMessage(tag, payload)))
	}
	send(channel.TagInit, nil)
	send(channel.TagSelect, channel.IDPayload{ID: "I1"})
	send(channel.TagSelect, channel.IDPayload{ID: "ghost"})

	require.Eventually(t, func() bool {
		return len(rec.Tagged(channel.TagError)) == 2
	}, time.Second, 5*time.Millisecond)

	var selected string
	require.NoError(t, e.Call(ctx, func() error {
		selected = e.Selected()
		return nil
	}))
	assert.Equal(t, "I1", selected)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServeHandlesMessagesReceivedBeforeClose(t *testing.T) {
	const n = 40
	for run := 0; run < 20; run++ {
		doc, err := dom.ParseString(page)
		require.NoError(t, err)
		rec := channel.NewRecorder()
		e := New(doc, rec, Options{})

		host, engineSide := channel.Pipe()
		ctx := context.Background()
		for i := 0; i < n; i++ {
			require.NoError(t, host.Send(ctx, channel.MustMessage(channel.TagSelect, channel.IDPayload{ID: "ghost"})))
		}
		require.NoError(t, host.Close())

		done := make(chan error, 1)
		go func() { done <- e.Serve(ctx, engineSide) }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Serve did not return after the input closed")
		}
		require.Len(t, rec.Tagged(channel.TagError), n, "run %d", run)
	}
}

func TestInitAnnouncesPage(t *testing.T) {
	doc, err := dom.ParseString(strings.Replace(page, "<body>",
		`<body data-hst-site="site" data-hst-toolkit="kit" data-hst-root="root">`, 1))
	require.NoError(t, err)
	rec := channel.NewRecorder()
	e := New(doc, rec, Options{})
	_ = e.Init()

	msgs := rec.Tagged(channel.TagAppLoaded)
	require.Len(t, msgs, 1)
	var p channel.AppLoadedPayload
	require.NoError(t, msgs[0].Decode(&p))
	assert.Equal(t, channel.AppLoadedPayload{SiteID: "site", ToolkitID: "kit", RootID: "root"}, p)
}
