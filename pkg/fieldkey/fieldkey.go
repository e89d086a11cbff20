// Package fieldkey derives the stable machine keys used to address form
// fields in a submission record. Keys are lowercase, built from [a-z0-9] runs
// joined by single underscores, and never start or end with an underscore.
package fieldkey

import (
	"strconv"
	"strings"
)

// Fallback is the key produced for inputs that carry no usable characters.
const Fallback = "field"

// Normalize maps a human label or name onto a field key. It is total and
// idempotent: Normalize(Normalize(s)) == Normalize(s). Inputs without any
// [a-z0-9] character (for example "" or "!!!") normalize to Fallback.
func Normalize(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))

	var b strings.Builder
	b.Grow(len(trimmed))
	pendingSep := false
	for i := 0; i < len(trimmed); i++ {
		ch := trimmed[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteByte(ch)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Derive computes the key for the field at position index, preferring name,
// then label, then the positional placeholder field_<index>.
func Derive(name, label string, index int) string {
	positional := "field_" + strconv.Itoa(index)

	source := name
	if source == "" {
		source = label
	}
	if source == "" {
		source = positional
	}
	return Normalize(source)
}
