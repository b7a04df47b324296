package dom

import (
	"github.com/andybalholm/cascadia"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

// compile turns a CSS selector into a matcher usable with goquery.
func compile(selector string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid selector %q", selector)
	}
	return m, nil
}

// MustCompile compiles selector and panics on error. Use for package-level
// selectors only.
func MustCompile(selector string) cascadia.Selector {
	return cascadia.MustCompile(selector)
}
