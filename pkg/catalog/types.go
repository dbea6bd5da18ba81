// Package catalog implements the client side of a pre-rendered photo
// catalog: a memoizing cache of album manifests fetched on demand from a
// static file server, representative-thumbnail resolution for album
// listings, and pruning of entries that turn out to be unreachable.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Album is one directory-equivalent node in the catalog tree. Media is
// ordered oldest first, Albums newest first; both orderings come from
// the manifest and are semantically meaningful.
type Album struct {
	Path   string    `json:"path"`
	Date   time.Time `json:"date"`
	Media  []*Photo  `json:"media"`
	Albums []*Album  `json:"albums"`

	parent *Album
	loaded bool
}

// Parent returns the owning album, or nil for the root. The link is
// established at decode time and never persisted.
func (a *Album) Parent() *Album { return a.parent }

// Loaded reports whether a's own manifest has been materialized. Child
// entries decoded from a parent manifest start out as unloaded links
// carrying only a relative path and a date.
func (a *Album) Loaded() bool { return a.loaded }

// Empty reports whether a holds neither media nor subalbums. Empty
// albums are never reachable in a well-formed catalog; discovering one
// at runtime triggers pruning.
func (a *Album) Empty() bool { return len(a.Media) == 0 && len(a.Albums) == 0 }

// FullPath returns a's path relative to the catalog root. For an
// unloaded child link the manifest only carries the path segment
// relative to its parent, so the parent chain supplies the rest.
func (a *Album) FullPath() string {
	if a.loaded || a.parent == nil {
		return a.Path
	}
	if pp := a.parent.FullPath(); pp != "" {
		return pp + "/" + a.Path
	}
	return a.Path
}

// Photo is a single media item: an image or a video, with the subset of
// scanner-extracted metadata the viewer renders when present.
type Photo struct {
	Name     string    `json:"name"`
	Hash     string    `json:"hash"`
	Size     [2]int    `json:"size"`
	MimeType string    `json:"mimeType"`
	Previews []Preview `json:"previews"`
	Date     time.Time `json:"date,omitempty"`

	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Lens        string    `json:"lens,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Aperture    float64   `json:"aperture,omitempty"`
	FocalLength string    `json:"focalLength,omitempty"`
	ISO         int64     `json:"iso,omitempty"`
	Shutter     string    `json:"shutter,omitempty"`
	GPS         []float64 `json:"gps,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	Creator     string    `json:"creator,omitempty"`
	Orientation string    `json:"orientation,omitempty"`

	parent *Album
}

// Parent returns the album whose media list holds p.
func (p *Photo) Parent() *Album { return p.parent }

// IsVideo reports whether p is a video rather than a still image.
func (p *Photo) IsVideo() bool { return strings.HasPrefix(p.MimeType, "video/") }

// ext is the file extension renditions are stored under.
func (p *Photo) ext() string {
	if p.IsVideo() {
		return "mp4"
	}
	return "jpg"
}

// BestPreview returns the smallest declared rendition of at least
// target pixels, falling back to the largest size available. The full
// sentinel is only chosen when nothing else is declared.
func (p *Photo) BestPreview(target int) Preview {
	best := Preview{Full: true}
	largest := Preview{Full: true}
	for _, pv := range p.Previews {
		if pv.Full {
			continue
		}
		if pv.Px >= target && (best.Full || pv.Px < best.Px) {
			best = pv
		}
		if largest.Full || pv.Px > largest.Px {
			largest = pv
		}
	}
	if best.Full {
		return largest
	}
	return best
}

// Preview is one declared rendition size: a pixel target, or the
// original-quality asset when Full is set.
type Preview struct {
	Px   int
	Full bool
}

func (p Preview) String() string {
	if p.Full {
		return "full"
	}
	return strconv.Itoa(p.Px)
}

// UnmarshalJSON accepts either a number or the "full" sentinel, which
// is how manifests declare the list of available sizes.
func (p *Preview) UnmarshalJSON(b []byte) error {
	if string(b) == `"full"` {
		p.Full = true
		return nil
	}
	return json.Unmarshal(b, &p.Px)
}

func (p Preview) MarshalJSON() ([]byte, error) {
	if p.Full {
		return []byte(`"full"`), nil
	}
	return []byte(strconv.Itoa(p.Px)), nil
}

// DecodeAlbum parses one album manifest and links every child photo and
// subalbum back to the new node. Child albums arrive as unloaded links
// (relative path plus date) until their own manifest is fetched.
func DecodeAlbum(r io.Reader) (*Album, error) {
	a := &Album{}
	if err := json.NewDecoder(r).Decode(a); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	a.loaded = true
	for _, p := range a.Media {
		p.parent = a
	}
	for _, c := range a.Albums {
		c.parent = a
	}
	return a, nil
}
