package geometry

// ContainerOverlay computes a container overlay box from the live element box.
// A bordered overlay is grown by twice the border on each axis and shifted
// up-left by the same amount so the border frames the element. The returned
// margin is the border width children must compensate for.
func ContainerOverlay(src Rect, border float64) (box Rect, margin float64) {
	if border <= 0 {
		return src, 0
	}
	total := border * 2
	src.Left -= total
	src.Top -= total
	src.Width += total
	src.Height += total
	return src, border
}

// ItemOverlay computes an item overlay box relative to its container overlay.
// parent is the container overlay box, margin the container's overlay margin.
func ItemOverlay(src, parent Rect, margin, border float64) Rect {
	src.Left -= parent.Left + margin
	src.Top -= parent.Top + margin
	src.Width -= border * 2
	src.Height -= border * 2
	return src
}

// MenuBox anchors a w×h menu to the top-right corner of overlay, moved by dx, dy.
func MenuBox(overlay Rect, w, h, dx, dy float64) Rect {
	return Rect{
		Left:   overlay.Right() - w + dx,
		Top:    overlay.Top + dy,
		Width:  w,
		Height: h,
	}
}
