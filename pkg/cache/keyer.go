package cache

// Keyer names the cache entries of backend lookups.
type Keyer interface {
	// DocumentsKey names the document paths offered for a combo field.
	DocumentsKey(siteID, docType string) string
	// PageModelKey names the component records of a page.
	PageModelKey(pageID string) string
	// ToolkitKey names the components available for adding.
	ToolkitKey(toolkitID string) string
}

// DefaultKeyer produces readable keys from identifiers.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DocumentsKey implements Keyer.
func (DefaultKeyer) DocumentsKey(siteID, docType string) string {
	return "documents:" + siteID + ":" + docType
}

// PageModelKey implements Keyer.
func (DefaultKeyer) PageModelKey(pageID string) string { return "pagemodel:" + pageID }

// ToolkitKey implements Keyer.
func (DefaultKeyer) ToolkitKey(toolkitID string) string { return "toolkit:" + toolkitID }

// ScopedKeyer wraps a Keyer with a prefix so that backends sharing one
// cache do not see each other's entries.
//
//	keys := NewScopedKeyer(nil, ScopePrefix("backend", baseURL))
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// DocumentsKey implements Keyer.
func (k *ScopedKeyer) DocumentsKey(siteID, docType string) string {
	return k.prefix + k.inner.DocumentsKey(siteID, docType)
}

// PageModelKey implements Keyer.
func (k *ScopedKeyer) PageModelKey(pageID string) string {
	return k.prefix + k.inner.PageModelKey(pageID)
}

// ToolkitKey implements Keyer.
func (k *ScopedKeyer) ToolkitKey(toolkitID string) string {
	return k.prefix + k.inner.ToolkitKey(toolkitID)
}
