package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// FetchError is a manifest or preview fetch that came back with a
// non-OK status. A 403 means the content exists but is gated behind
// authentication; everything else is treated as not-found.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// AccessDenied reports whether the failure was an authentication gate
// rather than missing content.
func (e *FetchError) AccessDenied() bool { return e.Status == http.StatusForbidden }

// IsAccessDenied reports whether err is a 403 fetch failure.
func IsAccessDenied(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.AccessDenied()
}

// Store is the session-wide album cache. Each manifest is fetched at
// most once and kept until pruned; the backing manifests are assumed
// immutable for the lifetime of the session, so a hard restart is the
// only other invalidation path.
type Store struct {
	// CacheRoot is the base URL manifests and thumbnails are served
	// from. AlbumsRoot serves original-quality assets, keyed by album
	// path and filename rather than by hash.
	CacheRoot  string
	AlbumsRoot string

	// Client is the HTTP client used for all fetches.
	Client *http.Client

	mu     sync.Mutex
	albums map[string]*Album
	group  singleflight.Group
}

// NewStore returns an empty session cache over the given base URLs.
func NewStore(cacheRoot, albumsRoot string) *Store {
	return &Store{
		CacheRoot:  cacheRoot,
		AlbumsRoot: albumsRoot,
		Client:     &http.Client{Timeout: 30 * time.Second},
		albums:     map[string]*Album{},
	}
}

// Album returns the album stored under the canonical form of key,
// fetching and materializing its manifest on first use. A directly
// navigated album resolves its ancestor chain too, so every node but
// the root always carries a parent link.
func (s *Store) Album(ctx context.Context, key string) (*Album, error) {
	return s.resolve(ctx, CacheKey(key), nil)
}

// Child materializes one entry of parent.Albums. Already-loaded nodes
// are returned as-is without touching the network; a link is resolved
// under the canonical key of the parent path joined with the link
// segment, and filled in place so the parent's listing keeps pointing
// at the same node.
func (s *Store) Child(ctx context.Context, parent *Album, child *Album) (*Album, error) {
	if child.loaded {
		return child, nil
	}
	return s.resolve(ctx, CacheKey(parent.Path+"/"+child.Path), child)
}

// Cached returns the album under key without fetching, or nil.
func (s *Store) Cached(key string) *Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.albums[CacheKey(key)]
}

// Len returns the number of materialized albums in the cache.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.albums)
}

func (s *Store) resolve(ctx context.Context, key string, link *Album) (*Album, error) {
	if a := s.lookup(key, link); a != nil {
		return a, nil
	}

	// Concurrent lookups for the same key share one fetch. The cache is
	// re-checked inside the flight in case a just-finished fetch landed
	// between our miss and the Do call.
	v, err, _ := s.group.Do(key, func() (any, error) {
		if a := s.lookup(key, link); a != nil {
			return a, nil
		}
		fetched, err := s.fetchManifest(ctx, key)
		if err != nil {
			return nil, err
		}
		a := link
		if a == nil {
			if a, err = s.linkFor(ctx, key, fetched.Path); err != nil {
				return nil, err
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if cached, ok := s.albums[key]; ok {
			return cached, nil
		}
		// The node must not be visible in the cache until every child
		// carries its parent link.
		a.Path = fetched.Path
		a.Date = fetched.Date
		a.Media = fetched.Media
		a.Albums = fetched.Albums
		a.loaded = true
		for _, p := range a.Media {
			p.parent = a
		}
		for _, c := range a.Albums {
			c.parent = a
		}
		s.albums[key] = a
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Album), nil
}

// lookup returns the album cached under key, if any. When the caller
// holds a different, still-unloaded link for the same key, the link is
// folded out of its parent's listing in favor of the cached node, so
// one album never has two node identities.
func (s *Store) lookup(key string, link *Album) *Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albums[key]
	if !ok {
		return nil
	}
	if link != nil && link != a && link.parent != nil {
		for i, c := range link.parent.Albums {
			if c == link {
				link.parent.Albums[i] = a
			}
		}
	}
	return a
}

// linkFor resolves the parent chain of a directly navigated album and
// returns the parent's own listing entry for it, so a deep link and a
// walk down from the root materialize the same node. The root has no
// parent.
func (s *Store) linkFor(ctx context.Context, key, fullPath string) (*Album, error) {
	if fullPath == "" {
		return &Album{}, nil
	}
	parentPath := ""
	if i := strings.LastIndex(fullPath, "/"); i >= 0 {
		parentPath = fullPath[:i]
	}
	pkey := CacheKey(parentPath)
	if pkey == key {
		// Malformed manifest claiming itself as parent.
		return &Album{}, nil
	}
	parent, err := s.resolve(ctx, pkey, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve parent of %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range parent.Albums {
		if CacheKey(c.FullPath()) == key {
			return c, nil
		}
	}
	// The parent does not list this album. Keep the chain intact
	// anyway so pruning can walk upward.
	return &Album{parent: parent}, nil
}

func (s *Store) fetchManifest(ctx context.Context, key string) (*Album, error) {
	url := s.CacheRoot + "/" + key + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	a, err := DecodeAlbum(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", url, err)
	}
	klog.V(1).Infof("fetched %s: %d media, %d albums", key, len(a.Media), len(a.Albums))
	return a, nil
}
