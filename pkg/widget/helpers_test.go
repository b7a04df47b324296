package widget

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/dom"
)

const testPage = `<html><body>
<div id="C1" data-hst-type="HST.UnorderedList" data-box="0,0,200,100">
  <ul class="hst-container">
    <li class="hst-container-item"><div id="I1" data-hst-type="HST.Item" data-box="0,0,200,50">one</div></li>
    <li class="hst-container-item"><div id="I2" data-hst-type="HST.Item" data-box="0,50,200,50">two</div></li>
  </ul>
</div>
<div id="C2" data-hst-type="HST.vBox" data-box="300,0,200,100"><div class="hst-container"></div></div>
</body></html>`

type fixture struct {
	doc *dom.Document
	reg *Registry
	rec *channel.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := dom.ParseString(testPage)
	require.NoError(t, err)
	rec := channel.NewRecorder()
	reg := NewDefaultRegistry(&Env{Doc: doc, Sender: rec})
	return &fixture{doc: doc, reg: reg, rec: rec}
}

func (f *fixture) container(t *testing.T, id string) *Container {
	t.Helper()
	w, err := f.reg.CreateOrRetrieve(f.doc.ElementByID(id))
	require.NoError(t, err)
	c, ok := w.(*Container)
	require.True(t, ok)
	return c
}

func (f *fixture) item(t *testing.T, id string) *Item {
	t.Helper()
	w, err := f.reg.GetByID(id)
	require.NoError(t, err)
	it, ok := w.(*Item)
	require.True(t, ok)
	return it
}

func (f *fixture) element(t *testing.T, src string) *dom.Element {
	t.Helper()
	els, err := f.doc.Fragment(src)
	require.NoError(t, err)
	require.Len(t, els, 1)
	return els[0]
}

func wrapperIDs(c *Container) []string {
	var out []string
	for _, w := range c.slot.Children() {
		if el := w.First("[" + AttrType + "]"); el != nil {
			out = append(out, WidgetID(el))
		}
	}
	return out
}
