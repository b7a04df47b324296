// Package dom is the headless embedded document the composer works against.
//
// A [Document] wraps an HTML node tree parsed with golang.org/x/net/html and
// queried through goquery and cascadia selectors. [Element] is a lightweight,
// non-owning handle on one node; two handles are the same element when they
// point at the same node (see [Element.Equal]).
//
// The document also carries a minimal event system ([Document.On],
// [Document.Dispatch]) with bubbling and StopPropagation, which is all the
// overlay widgets need for hover, click and delete-button handling.
//
// Geometry is not computed here. A [Layout] answers element boxes; the
// headless [AttrLayout] reads them from a data-box attribute or from inline
// left/top/width/height styles, which is also where overlays write their
// position.
package dom
