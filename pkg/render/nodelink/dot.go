package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes type, template and path in node labels.
	// When false, only the component name (or ID) is shown.
	Detailed bool

	// Selected highlights the component with this ID.
	Selected string
}

// ToDOT converts a page model to Graphviz DOT format.
// Edges follow each component's children in order; children that are not
// part of comps are skipped.
func ToDOT(comps []pagemodel.Component, opts Options) string {
	known := make(map[string]bool, len(comps))
	for _, c := range comps {
		known[c.ID] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  ordering=out;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, c := range comps {
		attrs := fmtAttrs(c, fmtLabel(c, opts.Detailed), c.ID == opts.Selected)
		fmt.Fprintf(&buf, "  %q [%s];\n", c.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range comps {
		for _, child := range c.Children {
			if known[child] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", c.ID, child)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(c pagemodel.Component, detailed bool) string {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	if !detailed {
		return name
	}

	parts := []string{"type: " + string(c.Type)}
	if c.XType != "" {
		parts = append(parts, "xtype: "+c.XType)
	}
	if c.Template != "" {
		parts = append(parts, "template: "+c.Template)
	}
	if c.Path != "" {
		parts = append(parts, "path: "+c.Path)
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(c pagemodel.Component, label string, selected bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch c.Type {
	case pagemodel.TypePage:
		attrs = append(attrs, "shape=box3d", "fillcolor=lightgrey")
	case pagemodel.TypeContainer:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=aliceblue")
	}
	if selected {
		attrs = append(attrs, "color=orange", "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
