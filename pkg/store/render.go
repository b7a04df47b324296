package store

import (
	"context"

	"github.com/matzehuels/pagecomposer/pkg/composer"
	"github.com/matzehuels/pagecomposer/pkg/dom"
	"github.com/matzehuels/pagecomposer/pkg/geometry"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/widget"
)

// Generated page geometry.
const (
	PageWidth  = 600.0
	ItemHeight = 50.0
	SpanWidth  = 120.0
	Gap        = 20.0
)

// markup describes the elements a container variant is written with.
type markup struct {
	box, wrapper, cell, body string
}

var markups = map[string]markup{
	widget.TagTable:         {box: "table", wrapper: "tr", cell: "td", body: "tbody"},
	widget.TagOrderedList:   {box: "ol", wrapper: "li"},
	widget.TagUnorderedList: {box: "ul", wrapper: "li"},
	widget.TagVBox:          {box: "div", wrapper: "div"},
	widget.TagSpan:          {box: "div", wrapper: "span"},
	widget.TagBaseContainer: {box: "div", wrapper: "div"},
}

// RenderPage returns the markup of a page. Pages stored with markup are
// returned as is; otherwise the markup is generated from the page model,
// with data-box geometry for headless layout.
func (r *Repository) RenderPage(ctx context.Context, pageID string) (string, error) {
	page, err := r.Page(ctx, pageID)
	if err != nil {
		return "", err
	}
	if page.HTML != "" {
		return page.HTML, nil
	}
	comps, err := r.PageModel(ctx, page.RootID)
	if err != nil {
		return "", err
	}
	return Render(page, comps)
}

// Render generates page markup for a page model. Containers are stacked
// vertically in model order; items flow along their container's axis.
func Render(page pagemodel.Page, comps []pagemodel.Component) (string, error) {
	doc, err := dom.ParseString("<html><head><title></title></head><body></body></html>")
	if err != nil {
		return "", err
	}
	body := doc.Body()
	body.SetAttr(composer.AttrSite, page.SiteID)
	if page.ToolkitID != "" {
		body.SetAttr(composer.AttrToolkit, page.ToolkitID)
	}
	body.SetAttr(composer.AttrRoot, page.RootID)
	if t, _ := doc.Find("title"); len(t) > 0 {
		t[0].SetText(page.ID)
	}

	byID := make(map[string]pagemodel.Component, len(comps))
	for _, c := range comps {
		byID[c.ID] = c
	}

	top := 0.0
	for _, c := range comps {
		if !c.IsContainer() {
			continue
		}
		tag := c.XType
		m, ok := markups[tag]
		if !ok {
			tag, m = widget.TagVBox, markups[widget.TagVBox]
		}
		horizontal := tag == widget.TagSpan

		var items []pagemodel.Component
		for _, id := range c.Children {
			if child, ok := byID[id]; ok && child.IsItem() {
				items = append(items, child)
			}
		}

		height := ItemHeight * float64(max(len(items), 1))
		if horizontal {
			height = ItemHeight
		}
		el := doc.CreateElement("div")
		el.SetAttr("id", c.ID)
		el.SetAttr(widget.AttrType, tag)
		el.SetAttr(dom.BoxAttr, geometry.Rect{Top: top, Width: PageWidth, Height: height}.String())

		box := doc.CreateElement(m.box)
		box.AddClass(widget.ClassContainer)
		el.AppendChild(box)
		slot := box
		if m.body != "" {
			slot = doc.CreateElement(m.body)
			box.AppendChild(slot)
		}

		for i, item := range items {
			rect := geometry.Rect{Top: top + ItemHeight*float64(i), Width: PageWidth, Height: ItemHeight}
			if horizontal {
				rect = geometry.Rect{Left: SpanWidth * float64(i), Top: top, Width: SpanWidth, Height: ItemHeight}
			}
			w := doc.CreateElement(m.wrapper)
			w.AddClass(widget.ClassContainerItem)
			inner := w
			if m.cell != "" {
				inner = doc.CreateElement(m.cell)
				w.AppendChild(inner)
			}
			itemEl := doc.CreateElement("div")
			itemEl.SetAttr("id", item.ID)
			itemEl.SetAttr(widget.AttrType, widget.TagItem)
			itemEl.SetAttr(dom.BoxAttr, rect.String())
			itemEl.SetText(itemText(item))
			inner.AppendChild(itemEl)
			slot.AppendChild(w)
		}
		body.AppendChild(el)
		top += height + Gap
	}
	return doc.HTML(), nil
}

func itemText(c pagemodel.Component) string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Template != "":
		return c.Template
	default:
		return c.ID
	}
}
