package composer

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/widget"
)

func handle(t *testing.T, e *Engine, tag channel.Tag, payload any) error {
	t.Helper()
	return e.Handle(channel.MustMessage(tag, payload))
}

func TestHandleSelection(t *testing.T) {
	e, _ := newEngine(t)
	i1, err := e.Registry().GetByID("I1")
	require.NoError(t, err)
	i2, err := e.Registry().GetByID("I2")
	require.NoError(t, err)

	require.NoError(t, handle(t, e, channel.TagSelect, channel.IDPayload{ID: "I1"}))
	assert.True(t, i1.Selected())
	assert.Equal(t, "I1", e.Selected())

	require.NoError(t, handle(t, e, channel.TagSelect, channel.IDPayload{ID: "I2"}))
	assert.False(t, i1.Selected())
	assert.True(t, i2.Selected())

	require.NoError(t, handle(t, e, channel.TagToggle, channel.IDPayload{ID: "I2"}))
	assert.False(t, i2.Selected())
	assert.Empty(t, e.Selected())

	require.NoError(t, handle(t, e, channel.TagToggle, channel.IDPayload{ID: "I1"}))
	require.NoError(t, handle(t, e, channel.TagDeselect, channel.IDPayload{ID: "I1"}))
	assert.False(t, i1.Selected())
}

func TestHandleErrors(t *testing.T) {
	e, _ := newEngine(t)

	tests := []struct {
		name string
		msg  channel.Message
		code errors.Code
	}{
		{"unknown tag", channel.MustMessage("bogus", nil), errors.ErrCodeUnsupported},
		{"missing id", channel.MustMessage(channel.TagSelect, channel.IDPayload{}), errors.ErrCodeRequired},
		{"unknown widget", channel.MustMessage(channel.TagSelect, channel.IDPayload{ID: "ghost"}), errors.ErrCodeNotFound},
		{"highlight item", channel.MustMessage(channel.TagHighlight, channel.IDPayload{ID: "I1"}), errors.ErrCodeInvalidInput},
		{"remove unknown", channel.MustMessage(channel.TagRemove, channel.IDPayload{ID: "ghost"}), errors.ErrCodeNotFound},
		{"add to unknown", channel.MustMessage(channel.TagAdd, channel.AddPayload{Container: "ghost", HTML: "<div></div>"}), errors.ErrCodeNotFound},
		{"bad payload", channel.Message{Tag: channel.TagSelect, Payload: []byte(`[`)}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Handle(tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestHandleHighlight(t *testing.T) {
	e, _ := newEngine(t)
	c1 := mustContainer(t, e, "C1")

	require.NoError(t, handle(t, e, channel.TagHighlight, channel.IDPayload{ID: "C1"}))
	assert.True(t, c1.Overlay().HasClass(widget.ClassHighlight))
	require.NoError(t, handle(t, e, channel.TagUnhighlight, channel.IDPayload{ID: "C1"}))
	assert.False(t, c1.Overlay().HasClass(widget.ClassHighlight))
}

func TestHandleRemove(t *testing.T) {
	e, rec := newEngine(t)
	require.NoError(t, handle(t, e, channel.TagSelect, channel.IDPayload{ID: "I1"}))

	require.NoError(t, handle(t, e, channel.TagRemove, channel.IDPayload{ID: "I1"}))

	c1 := mustContainer(t, e, "C1")
	assert.Equal(t, []string{"I2"}, c1.Order())
	assert.Nil(t, e.Document().ElementByID("I1-overlay"))
	assert.Empty(t, e.Selected())
	_, err := e.Registry().GetByID("I1")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	got := rearranges(t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"I2"}, got[0].Children)
}

func TestHandleRemoveLastItemLeavesPlaceholder(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, handle(t, e, channel.TagRemove, channel.IDPayload{ID: "I1"}))
	require.NoError(t, handle(t, e, channel.TagRemove, channel.IDPayload{ID: "I2"}))

	c1 := mustContainer(t, e, "C1")
	assert.True(t, c1.Empty())
	els, err := c1.Element().Find("." + widget.ClassEmptyItem)
	require.NoError(t, err)
	assert.Len(t, els, 1)
}

func TestHandleAdd(t *testing.T) {
	e, rec := newEngine(t)

	require.NoError(t, handle(t, e, channel.TagAdd, channel.AddPayload{
		Container: "C2",
		HTML:      `<div id="I3" data-hst-type="HST.Item">three</div>`,
		Index:     0,
	}))

	c2 := mustContainer(t, e, "C2")
	assert.Equal(t, []string{"I3"}, c2.Order())
	assert.False(t, c2.Empty())
	assert.NotNil(t, e.Document().ElementByID("I3-overlay"))

	got := rearranges(t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "C2", got[0].ID)
}

func TestAddTemporary(t *testing.T) {
	e, rec := newEngine(t)

	item, err := e.AddTemporary("C1", 1)
	require.NoError(t, err)
	assert.True(t, item.Temporary())
	assert.Contains(t, item.ID(), TemporaryPrefix)
	assert.Equal(t, []string{"I1", item.ID(), "I2"}, mustContainer(t, e, "C1").Order())

	rec.Reset()
	item.Overlay().Document().Dispatch(item.Overlay(), "click")
	assert.Equal(t, []channel.Tag{channel.TagRefresh}, rec.Tags())
}

func TestHandleShareData(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, handle(t, e, channel.TagShareData, channel.ShareDataPayload{
		Names: map[string]string{"I1": "Banner"},
	}))

	w, err := e.Registry().GetByID("I1")
	require.NoError(t, err)
	assert.Equal(t, "Banner", w.(*widget.Item).Name())

	// Names survive a re-initialization.
	_ = e.Init()
	w, err = e.Registry().GetByID("I1")
	require.NoError(t, err)
	assert.Equal(t, "Banner", w.(*widget.Item).Name())
}

func TestHandleTeardownAndInit(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, handle(t, e, channel.TagTeardown, nil))
	assert.False(t, e.Initialized())

	err := handle(t, e, channel.TagInit, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownTypeTag))
	assert.True(t, e.Initialized())
	assert.Len(t, e.Containers(), 2)
}

func TestHandleDrag(t *testing.T) {
	e, _ := newEngine(t)

	require.NoError(t, handle(t, e, channel.TagDrag, channel.DragPayload{ID: "I1", Container: "C2", Index: 0}))
	assert.Equal(t, []string{"I2"}, mustContainer(t, e, "C1").Order())
	assert.Equal(t, []string{"I1"}, mustContainer(t, e, "C2").Order())

	err := handle(t, e, channel.TagDrag, channel.DragPayload{ID: "I1"})
	assert.True(t, errors.Is(err, errors.ErrCodeRequired))
}

func TestReloadReplacesDocument(t *testing.T) {
	fresh := strings.Replace(page, `<div id="X" data-hst-type="HST.Carousel"></div>`, "", 1)
	fresh = strings.Replace(fresh, ">one<", ">uno<", 1)
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	rec := channel.NewRecorder()
	e := New(doc, rec, Options{Source: func(context.Context) (string, error) { return fresh, nil }})
	require.Error(t, e.Init())

	require.NoError(t, handle(t, e, channel.TagReload, nil))
	assert.NotSame(t, doc, e.Document())
	assert.Len(t, e.Containers(), 2)
	assert.Equal(t, "uno", e.Document().ElementByID("I1").Text())
	_, err = e.Registry().GetByID("X")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestReloadWithoutSourceRescans(t *testing.T) {
	e, _ := newEngine(t)
	doc := e.Document()

	err := e.Reload()
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownTypeTag))
	assert.Same(t, doc, e.Document())
	assert.Len(t, e.Containers(), 2)
}

func TestReloadSourceFailure(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	e := New(doc, channel.NewRecorder(), Options{Source: func(context.Context) (string, error) {
		return "", stderrors.New("backend down")
	}})
	_ = e.Init()

	err = e.Reload()
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork))
	assert.Same(t, doc, e.Document())
	assert.Len(t, e.Containers(), 2)
}
