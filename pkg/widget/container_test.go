package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dnd"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
)

func placeholders(t *testing.T, c *Container) int {
	t.Helper()
	found, err := c.Element().Find("." + ClassEmptyItem)
	require.NoError(t, err)
	return len(found)
}

func TestContainerScan(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")

	assert.Equal(t, []string{"I1", "I2"}, c.Order())
	assert.Equal(t, "unordered-list", c.Layout().Name)
	assert.Equal(t, geometry.Vertical, c.Direction())
	assert.False(t, c.Rendered())
}

func TestContainerDirectionOverride(t *testing.T) {
	f := newFixture(t)
	f.doc.ElementByID("C1").SetAttr(AttrDirection, "horizontal")
	assert.Equal(t, geometry.Horizontal, f.container(t, "C1").Direction())
}

func TestContainerWithoutBox(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreateOrRetrieve(f.element(t, `<div id="C9" data-hst-type="HST.vBox"></div>`))
	assert.Error(t, err)
}

func TestContainerRender(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)
	c.Render(nil)

	ov := c.Overlay()
	require.NotNil(t, ov)
	assert.Equal(t, "C1-overlay", ov.ID())
	assert.True(t, ov.HasClass(ClassOverlay))
	assert.True(t, ov.HasClass(ClassOverlayContainer))
	assert.True(t, ov.Parent().Equal(f.doc.Body()))

	overlays, err := f.doc.Find("#C1-overlay")
	require.NoError(t, err)
	assert.Len(t, overlays, 1, "render is idempotent")

	box, err := dom.AttrLayout{}.Box(ov)
	require.NoError(t, err)
	assert.Equal(t, geometry.Rect{Width: 200, Height: 100}, box)

	for _, it := range c.Items() {
		require.True(t, it.Rendered())
		assert.True(t, it.Overlay().Parent().Equal(ov))
		assert.Same(t, c, it.Container())
	}
	assert.False(t, c.Empty())
	assert.Empty(t, f.rec.Messages())
}

func TestEmptyPlaceholder(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C2")
	c.Render(nil)

	require.True(t, c.Empty())
	assert.Equal(t, 1, placeholders(t, c))
	assert.True(t, c.Overlay().HasClass(ClassEmptyContainer))
	assert.Equal(t, emptyText, c.slot.Children()[0].Text())

	el := f.element(t, `<div id="I9" data-hst-type="HST.Item" data-box="300,0,200,50">nine</div>`)
	_, err := c.Add(el, 0)
	require.NoError(t, err)
	c.CheckState()
	assert.False(t, c.Empty())
	assert.Equal(t, 0, placeholders(t, c))
	assert.Equal(t, []string{"I9"}, wrapperIDs(c))

	require.True(t, c.RemoveItem("I9", false))
	c.CheckState()
	assert.True(t, c.Empty())
	assert.Equal(t, 1, placeholders(t, c))

	c.state.CheckEmpty = true
	c.CheckState()
	assert.Equal(t, 1, placeholders(t, c), "placeholder is never duplicated")
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)
	i1 := f.item(t, "I1")

	assert.False(t, c.RemoveItem("nope", false))
	assert.True(t, c.RemoveItem("I1", false))
	assert.False(t, i1.Rendered())
	assert.False(t, i1.Element().Attached())
	assert.Equal(t, []string{"I2"}, c.Order())

	c.CheckState()
	msgs := f.rec.Tagged(channel.TagRearrange)
	require.Len(t, msgs, 1)
	var p channel.RearrangePayload
	require.NoError(t, msgs[0].Decode(&p))
	assert.Equal(t, []string{"I2"}, p.Children)
}

func TestAddAtIndex(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)

	el := f.element(t, `<div id="I3" data-hst-type="HST.Item" data-box="0,100,200,50">three</div>`)
	it, err := c.Add(el, 1)
	require.NoError(t, err)
	assert.True(t, it.Rendered())
	assert.Equal(t, []string{"I1", "I3", "I2"}, c.Order())
	assert.Equal(t, []string{"I1", "I3", "I2"}, wrapperIDs(c))
	assert.Equal(t, "li", el.Parent().Tag())

	c.CheckState()
	assert.Equal(t, []string{"I1", "I3", "I2"}, c.overlayOrder())
	assert.Len(t, f.rec.Tagged(channel.TagRearrange), 1)
}

func TestAddRejectsContainers(t *testing.T) {
	f := newFixture(t)
	c1 := f.container(t, "C1")
	_, err := c1.Add(f.doc.ElementByID("C2"), 0)
	assert.Error(t, err)
}

func TestTableLayoutWrapsInRows(t *testing.T) {
	f := newFixture(t)
	el := f.element(t, `<div id="T1" data-hst-type="HST.Table"><table class="hst-container"></table></div>`)
	f.doc.Body().AppendChild(el)
	w, err := f.reg.CreateOrRetrieve(el)
	require.NoError(t, err)
	c := w.(*Container)

	_, err = c.Add(f.element(t, `<div id="TI" data-hst-type="HST.Item">cell</div>`), -1)
	require.NoError(t, err)
	item := f.doc.ElementByID("TI")
	assert.Equal(t, "td", item.Parent().Tag())
	assert.Equal(t, "tr", item.Parent().Parent().Tag())
	assert.Equal(t, "tbody", item.Parent().Parent().Parent().Tag())
}

func TestLocalReorderEmitsRearrangeOnce(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)
	i1, i2 := f.item(t, "I1"), f.item(t, "I2")

	// The sortable moved I1's overlay after I2's.
	c.Overlay().AppendChild(i1.Overlay())
	require.NoError(t, c.DragUpdate(dnd.Event{ItemID: "I1"}))
	assert.Equal(t, PhaseDragging, c.Phase())

	c.CheckState()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, DragState{}, c.State())
	assert.Equal(t, []string{"I2", "I1"}, c.Order())
	assert.Equal(t, []string{"I2", "I1"}, wrapperIDs(c))
	assert.True(t, i2.Element().Parent().Index() < i1.Element().Parent().Index())

	c.CheckState()
	msgs := f.rec.Tagged(channel.TagRearrange)
	require.Len(t, msgs, 1)
	var p channel.RearrangePayload
	require.NoError(t, msgs[0].Decode(&p))
	assert.Equal(t, channel.RearrangePayload{ID: "C1", Children: []string{"I2", "I1"}}, p)
}

func TestCrossContainerMoveConverges(t *testing.T) {
	for _, removeFirst := range []bool{false, true} {
		name := "receive first"
		if removeFirst {
			name = "remove first"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			c1, c2 := f.container(t, "C1"), f.container(t, "C2")
			c1.Render(nil)
			c2.Render(nil)
			i2 := f.item(t, "I2")

			s := dnd.NewSurface(dnd.WithRemoveFirst(removeFirst))
			s.Connect(c1)
			s.Connect(c2)
			require.NoError(t, s.Move("I2", "C2", 0))
			c1.CheckState()
			c2.CheckState()

			assert.Equal(t, []string{"I1"}, c1.Order())
			assert.Equal(t, []string{"I2"}, c2.Order())
			assert.Equal(t, []string{"I1"}, wrapperIDs(c1))
			assert.Equal(t, []string{"I2"}, wrapperIDs(c2))
			assert.Equal(t, 0, placeholders(t, c2))

			assert.Same(t, c2, i2.Container())
			assert.True(t, i2.Rendered())
			assert.True(t, i2.Overlay().Parent().Equal(c2.Overlay()))
			assert.False(t, i2.Element().HasClass(ClassItemOnDrag))

			menus, err := f.doc.Find("." + ClassMenu + "[" + AttrID + "='I2']")
			require.NoError(t, err)
			assert.Len(t, menus, 1, "old menu is released")

			var ids []string
			for _, m := range f.rec.Tagged(channel.TagRearrange) {
				var p channel.RearrangePayload
				require.NoError(t, m.Decode(&p))
				ids = append(ids, p.ID)
			}
			assert.Equal(t, []string{"C1", "C2"}, ids)
		})
	}
}

func TestDrawDropIndicator(t *testing.T) {
	f := newFixture(t)
	c1, c2 := f.container(t, "C1"), f.container(t, "C2")
	c1.Render(nil)
	c2.Render(nil)
	i1, i2 := f.item(t, "I1"), f.item(t, "I2")
	ind := f.doc.CreateElement("div")
	f.doc.Body().AppendChild(ind)
	ind.Hide()
	other := f.doc.CreateElement("div")

	box := func() geometry.Rect {
		r, err := dom.AttrLayout{}.Box(ind)
		require.NoError(t, err)
		return r
	}

	require.NoError(t, c2.DrawDropIndicator(dnd.Placement{Item: other}, ind))
	assert.False(t, ind.Hidden())
	assert.Equal(t, "absolute", ind.Style("position"))
	assert.InDelta(t, 400, box().CenterX(), 1e-9)
	assert.InDelta(t, 50, box().CenterY(), 1e-9)

	require.NoError(t, c1.DrawDropIndicator(dnd.Placement{Item: other, Prev: i1.Overlay(), Next: i2.Overlay(), Siblings: 2}, ind))
	assert.InDelta(t, 50, box().CenterY(), 1e-9)

	require.NoError(t, c1.DrawDropIndicator(dnd.Placement{Item: other, Next: i1.Overlay(), Siblings: 2}, ind))
	assert.InDelta(t, -2, box().Top, 1e-9)

	require.NoError(t, c1.DrawDropIndicator(dnd.Placement{Item: other, Prev: i2.Overlay(), Siblings: 2}, ind))
	assert.InDelta(t, 102, box().Top, 1e-9)

	require.NoError(t, c1.DrawDropIndicator(dnd.Placement{Item: i1.Overlay(), Prev: i1.Overlay(), Next: i2.Overlay(), Siblings: 2}, ind))
	assert.InDelta(t, 25, box().CenterY(), 1e-9)

	f.reg.Forget("I2")
	assert.Error(t, c1.DrawDropIndicator(dnd.Placement{Item: other, Prev: i2.Overlay(), Siblings: 2}, ind))
}

func TestNoHoverDuringDrag(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)
	i1 := f.item(t, "I1")

	c.BeforeDrag()
	f.doc.Dispatch(i1.Overlay(), dom.EventMouseOver)
	assert.False(t, i1.Overlay().HasClass(ClassHover))

	c.AfterDrag()
	f.doc.Dispatch(i1.Overlay(), dom.EventMouseOver)
	assert.True(t, i1.Overlay().HasClass(ClassHover))
	f.doc.Dispatch(i1.Overlay(), dom.EventMouseOut)
	assert.False(t, i1.Overlay().HasClass(ClassHover))

	c.ToggleNoHover()
	assert.True(t, c.NoHover())
	assert.True(t, i1.NoHover())
}

func TestHighlightAndSharedData(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)

	c.Highlight()
	assert.True(t, c.Overlay().HasClass(ClassHighlight))
	c.Unhighlight()
	assert.False(t, c.Overlay().HasClass(ClassHighlight))

	c.UpdateSharedData(NameMap{"I1": "Banner"})
	assert.Equal(t, "Banner", f.item(t, "I1").Name())
	assert.Equal(t, loadingName, f.item(t, "I2").Name())
}

func TestContainerDestroy(t *testing.T) {
	f := newFixture(t)
	c := f.container(t, "C1")
	c.Render(nil)
	c.Destroy()
	c.Destroy()

	assert.False(t, c.Rendered())
	assert.Nil(t, c.Overlay())
	for _, it := range c.Items() {
		assert.False(t, it.Rendered())
		assert.Nil(t, it.Menu())
	}
	found, err := f.doc.Find("." + ClassOverlay)
	require.NoError(t, err)
	assert.Empty(t, found)
}
