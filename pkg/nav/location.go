// Package nav maps browser-style locations onto catalog positions and
// back, and tracks view state across navigations: which album and photo
// are showing, whether the album listing needs a redraw, and which
// neighboring previews to warm up.
package nav

import (
	"strings"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

// Router translates between locations and catalog positions. The
// location is the only bookmarkable state the system has: a
// view-prefixed path whose segments are canonical cache keys.
type Router struct {
	// Prefix is the fixed view prefix, e.g. "/view".
	Prefix string
}

// Position is a parsed location: an album key plus an optional photo
// segment.
type Position struct {
	AlbumKey string
	Photo    string // raw photo segment, "" when the location is album-only
}

// Parse decodes a location path. An empty remainder is the root; when
// the remainder contains a slash, the last segment names a photo and
// the rest is the album key.
func (r *Router) Parse(location string) Position {
	p := strings.TrimPrefix(location, r.Prefix)
	p = strings.Trim(p, "/")
	if p == "" {
		return Position{AlbumKey: catalog.RootKey}
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return Position{AlbumKey: p[:i], Photo: p[i+1:]}
	}
	return Position{AlbumKey: p}
}

// Location is the inverse of Parse for a given hash fragment.
func (r *Router) Location(hash string) string {
	return r.Prefix + "/" + hash
}

// AlbumHash returns the canonical location fragment for a. It is an
// exact left inverse of Parse for every album reachable from the root.
func AlbumHash(a *catalog.Album) string {
	return catalog.CacheKey(a.FullPath())
}

// PhotoHash returns the location fragment addressing p inside a.
func PhotoHash(a *catalog.Album, p *catalog.Photo) string {
	return AlbumHash(a) + "/" + catalog.CacheKey(p.Name)
}

// FindPhoto scans a's media for the entry whose canonicalized name
// matches segment, returning it with its list index. Stale or mistyped
// segments yield (nil, -1); the caller keeps the resolved album and
// degrades to album view.
func FindPhoto(a *catalog.Album, segment string) (*catalog.Photo, int) {
	want := catalog.CacheKey(segment)
	for i, p := range a.Media {
		if catalog.CacheKey(p.Name) == want {
			return p, i
		}
	}
	return nil, -1
}
