package models

import "strings"

// RawServiceRecord is one untyped record from the upstream service
// catalog. Field names are the upstream's Korean keys; values are
// whatever JSON type the upstream sent, so access goes through the
// String helper.
type RawServiceRecord map[string]interface{}

// String returns the trimmed string value for key, or "" when the key
// is absent, null, or not a string.
func (r RawServiceRecord) String(key string) string {
	value, exists := r[key]
	if !exists || value == nil {
		return ""
	}

	text, ok := value.(string)
	if !ok {
		return ""
	}

	return strings.TrimSpace(text)
}

// StringOr returns the trimmed string value for key, falling back to
// the given default when the value is missing or empty.
func (r RawServiceRecord) StringOr(key, fallback string) string {
	if text := r.String(key); text != "" {
		return text
	}
	return fallback
}
