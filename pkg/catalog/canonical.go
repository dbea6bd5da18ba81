package catalog

import (
	"fmt"
	"strings"
)

// RootKey is the cache key of the catalog root, whose path is empty.
const RootKey = "root"

var keyStripper = strings.NewReplacer(
	" ", "_",
	"/", "-",
	"(", "",
	")", "",
	"#", "",
	"&", "",
	",", "",
	"[", "",
	"]", "",
	`"`, "",
	"'", "",
)

// CacheKey turns an arbitrary album or photo path into the canonical,
// URL-safe key manifests and locations are named by. The mapping is
// total and deterministic, and paths differing only in case or stripped
// punctuation collide on purpose so that human-edited URLs keep
// working.
func CacheKey(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return RootKey
	}
	path = keyStripper.Replace(path)
	path = strings.ToLower(path)
	// Collapsing a run can manufacture a fresh "_-_", so all three
	// rewrites repeat together until the string is stable.
	for {
		next := strings.ReplaceAll(path, "_-_", "-")
		next = strings.ReplaceAll(next, "--", "-")
		next = strings.ReplaceAll(next, "__", "_")
		if next == path {
			break
		}
		path = next
	}
	if path == "" {
		return RootKey
	}
	return escapeKey(path)
}

// escapeKey percent-encodes everything outside the unreserved set so
// the key is safe as a path segment and a hash fragment alike. Hex is
// emitted lowercase and '%' passes through untouched, which keeps
// CacheKey idempotent over its own output.
func escapeKey(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~', c == '%':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}
