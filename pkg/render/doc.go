// Package render draws page models as diagrams.
//
// # Overview
//
// The composer edits a tree of components: a page holds containers, and
// containers hold ordered items. This package turns that tree into
// pictures for review and debugging:
//
//   - Node-link diagrams of the page model (in [nodelink] subpackage)
//   - Generic format conversion (SVG to PDF/PNG)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
package render
