package geometry

type cacheKey struct {
	kind   Kind
	source string
}

// Cache memoizes indicators per (kind, source id) for the duration of one drag
// gesture. Call Reset when the gesture ends.
type Cache struct {
	cfg     Config
	entries map[cacheKey]Indicator
}

// NewCache creates a cache computing indicators with cfg.
func NewCache(cfg Config) *Cache {
	return &Cache{cfg: cfg, entries: make(map[cacheKey]Indicator)}
}

// Config returns the indicator configuration.
func (c *Cache) Config() Config { return c.cfg }

// Inside returns the cached or computed [Inside] indicator for source id.
func (c *Cache) Inside(id string, src Rect, dir Direction) Indicator {
	return c.get(KindInside, id, func() Indicator { return Inside(src, dir, c.cfg) })
}

// Before returns the cached or computed [Before] indicator for source id.
func (c *Cache) Before(id string, src Rect, dir Direction) Indicator {
	return c.get(KindBefore, id, func() Indicator { return Before(src, dir, c.cfg) })
}

// After returns the cached or computed [After] indicator for source id.
func (c *Cache) After(id string, src Rect, dir Direction) Indicator {
	return c.get(KindAfter, id, func() Indicator { return After(src, dir, c.cfg) })
}

// Between returns the cached or computed [Between] indicator. prevID is the
// cache source.
func (c *Cache) Between(prevID string, prev, next Rect, dir Direction) Indicator {
	return c.get(KindBetween, prevID, func() Indicator { return Between(prev, next, dir, c.cfg) })
}

// Len returns the number of cached indicators.
func (c *Cache) Len() int { return len(c.entries) }

// Reset drops all cached indicators.
func (c *Cache) Reset() {
	clear(c.entries)
}

func (c *Cache) get(kind Kind, id string, compute func() Indicator) Indicator {
	k := cacheKey{kind: kind, source: id}
	if ind, ok := c.entries[k]; ok {
		return ind
	}
	ind := compute()
	c.entries[k] = ind
	return ind
}
