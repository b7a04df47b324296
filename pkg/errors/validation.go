package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIDLength bounds component, container and page identifiers.
const maxIDLength = 256

// idRegex matches identifiers assigned by the rendering backend. Temporary
// identifiers (ULIDs) and the UUID-like ids used by repositories both match.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_:-]*$`)

// ValidateID validates a component, container or page identifier before it is
// used in a selector, a storage key or a backend URL.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No path separators or dots (ids become URL path segments like "{id}./parameters")
//   - Maximum length of 256 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"/", "\\", ".", " "} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "id contains invalid characters: %q", pattern)
		}
	}

	if !idRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid id: %q", id)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
