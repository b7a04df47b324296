// Package geometry computes overlay and drop-indicator placement from plain boxes.
//
// Nothing in this package touches a document: callers read element boxes through
// a layout (see pkg/dom) and pass them in as [Rect] values. That keeps the
// inside/before/after/between math deterministic and testable.
//
// # Drop Indicators
//
// While an item is dragged, an indicator element shows where it will land:
//
//   - [Inside]: centered in the source box (used for empty containers and when
//     the placeholder sits next to the dragged item itself)
//   - [Before]/[After]: just outside the source box along the main axis
//   - [Between]: between two neighbours
//
// The main axis follows the container [Direction]. [Cache] memoizes the computed
// indicators per operation and source until it is reset at the end of a gesture,
// because the source boxes do not move while a gesture is in progress.
//
// # Overlays
//
// [ContainerOverlay] and [ItemOverlay] turn a live element box into the box of
// its overlay marker; [MenuBox] anchors an item's floating menu.
package geometry
