// Package nodelink renders page models as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz: the
// page sits at the top, its containers below it, and each container's items
// below the container in their stored order.
//
// # Usage
//
// Convert a page model to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(components, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: node labels include type, template and path
//   - Selected: the id of a component to highlight
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
