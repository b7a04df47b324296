package geometry

// PositionAbsolute is the CSS position every indicator is drawn with.
const PositionAbsolute = "absolute"

// Config holds the sizing rules for drop indicators.
type Config struct {
	// Min floors the thin dimension of the indicator when > 0, so that a
	// shrunk indicator stays visible on short sources.
	Min float64 `toml:"min"`
	// ThresholdHigh is the fraction removed from the thin dimension.
	ThresholdHigh float64 `toml:"threshold_high"`
	// ThresholdLow is the fraction removed from the long dimension.
	ThresholdLow float64 `toml:"threshold_low"`
	// BeforeOffset is the gap between a "before" indicator and its source.
	BeforeOffset float64 `toml:"before_offset"`
	// AfterOffset is the gap between an "after" indicator and its source.
	AfterOffset float64 `toml:"after_offset"`
}

// DefaultConfig returns the indicator defaults.
func DefaultConfig() Config {
	return Config{
		Min:           3,
		ThresholdHigh: 0.8,
		ThresholdLow:  0,
		BeforeOffset:  2,
		AfterOffset:   2,
	}
}

// Indicator is the computed placement of a drop indicator.
type Indicator struct {
	Rect
	Position string
}

// Kind names an indicator operation; it is part of the cache key.
type Kind string

const (
	KindInside  Kind = "inside"
	KindBefore  Kind = "before"
	KindAfter   Kind = "after"
	KindBetween Kind = "between"
)

// base sizes the indicator from the source box before it is positioned.
func base(src Rect, dir Direction, cfg Config) Rect {
	ind := src
	switch dir {
	case Vertical:
		ind.Width -= ind.Width * cfg.ThresholdLow
		ind.Height -= ind.Height * cfg.ThresholdHigh
		if cfg.Min > 0 && ind.Height < cfg.Min {
			ind.Height = cfg.Min
		}
	case Horizontal:
		ind.Height -= ind.Height * cfg.ThresholdLow
		ind.Width -= ind.Width * cfg.ThresholdHigh
		if cfg.Min > 0 && ind.Width < cfg.Min {
			ind.Width = cfg.Min
		}
	}
	return ind
}

func indicator(r Rect) Indicator {
	return Indicator{Rect: r, Position: PositionAbsolute}
}

// Inside centers the indicator within src.
func Inside(src Rect, dir Direction, cfg Config) Indicator {
	ind := base(src, dir, cfg)
	ind.Left += (src.Width - ind.Width) / 2
	ind.Top += (src.Height - ind.Height) / 2
	return indicator(ind)
}

// Before places the indicator just ahead of src along the main axis.
func Before(src Rect, dir Direction, cfg Config) Indicator {
	ind := base(src, dir, cfg)
	if dir == Vertical {
		ind.Left += (src.Width - ind.Width) / 2
		ind.Top -= cfg.BeforeOffset
	} else {
		ind.Left -= cfg.BeforeOffset
		ind.Top -= cfg.BeforeOffset
	}
	return indicator(ind)
}

// After places the indicator just behind src along the main axis.
func After(src Rect, dir Direction, cfg Config) Indicator {
	ind := base(src, dir, cfg)
	if dir == Vertical {
		ind.Left += (src.Width - ind.Width) / 2
		ind.Top += src.Height + cfg.AfterOffset
	} else {
		ind.Left += src.Width + cfg.AfterOffset
		ind.Top -= cfg.AfterOffset
	}
	return indicator(ind)
}

// Between places the indicator between prev and next. Vertically the indicator
// is centered on the midpoint of the gap between prev's bottom and next's top;
// horizontally it sits right after prev.
func Between(prev, next Rect, dir Direction, cfg Config) Indicator {
	ind := base(prev, dir, cfg)
	if dir == Vertical {
		ind.Left += (prev.Width - ind.Width) / 2
		bottom := prev.Bottom()
		ind.Top = bottom + (next.Top-bottom)/2 - ind.Height/2
	} else {
		ind.Left += prev.Width
	}
	return indicator(ind)
}
