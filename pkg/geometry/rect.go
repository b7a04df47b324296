package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Rect is an axis-aligned box in document coordinates (pixels).
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// CenterX returns the horizontal center.
func (r Rect) CenterX() float64 { return r.Left + r.Width/2 }

// CenterY returns the vertical center.
func (r Rect) CenterY() float64 { return r.Top + r.Height/2 }

// Offset returns r moved by dx, dy.
func (r Rect) Offset(dx, dy float64) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// String formats r in the "left,top,width,height" form understood by [ParseRect].
func (r Rect) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", fmtNum(r.Left), fmtNum(r.Top), fmtNum(r.Width), fmtNum(r.Height))
}

// ParseRect parses "left,top,width,height".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rect %q: want 4 comma-separated values", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		vals[i] = v
	}
	return Rect{Left: vals[0], Top: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Direction is the main axis along which a container lays out its items.
type Direction int

const (
	Vertical Direction = iota
	Horizontal
)

// String returns "vertical" or "horizontal".
func (d Direction) String() string {
	if d == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// ParseDirection parses "vertical" or "horizontal" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	}
	return Vertical, fmt.Errorf("unknown direction %q", s)
}
