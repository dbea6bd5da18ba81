package nav

import (
	"context"
	"errors"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

// ErrSuperseded is returned by Navigate when a newer navigation started
// before this one resolved. The losing call leaves all state untouched.
var ErrSuperseded = errors.New("navigation superseded")

// Mode is the controller's user-visible condition.
type Mode int

const (
	// ModeOK: the last navigation succeeded.
	ModeOK Mode = iota
	// ModeAuthRequired: the target exists but is gated; show the
	// authentication prompt.
	ModeAuthRequired
	// ModeError: the target could not be fetched; show the generic
	// error banner.
	ModeError
)

// State is one resolved view position. PhotoIndex is -1 in album-only
// view.
type State struct {
	Album      *catalog.Album
	Photo      *catalog.Photo
	PhotoIndex int
}

// View is what a renderer needs after a navigation: the new state plus
// whether the album listing itself changed. Paging between photos of
// one album keeps AlbumChanged false so sibling thumbnails are not
// discarded and refetched.
type View struct {
	State
	AlbumChanged bool
}

// AlbumThumb pairs a subalbum with its representative photo. Owner is
// the album the photo actually lives in, which may be a descendant of
// Album when the resolver had to delegate.
type AlbumThumb struct {
	Album *catalog.Album
	Owner *catalog.Album
	Photo *catalog.Photo
}

// Controller orchestrates navigation over a catalog store: it resolves
// locations, keeps current and previous view state, warms neighboring
// previews, and routes failures into authentication, error, or pruning
// paths.
type Controller struct {
	// PrefetchPx is the rendition size warmed for neighbor photos.
	PrefetchPx int

	store  *catalog.Store
	router *Router

	mu       sync.Mutex
	gen      uint64
	current  State
	previous State
	mode     Mode

	prefetches sync.WaitGroup
}

// NewController returns a controller with empty view state.
func NewController(store *catalog.Store, router *Router) *Controller {
	return &Controller{
		PrefetchPx: 1024,
		store:      store,
		router:     router,
		current:    State{PhotoIndex: -1},
		previous:   State{PhotoIndex: -1},
	}
}

// Current returns the live view position.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Previous returns the view position before the last transition.
func (c *Controller) Previous() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// CurrentMode returns the user-visible condition after the last
// navigation.
func (c *Controller) CurrentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Navigate resolves location and updates the controller state. The
// album always resolves before any photo lookup, since the photo is
// found by scanning the resolved album's media. A call that loses to a
// newer navigation returns ErrSuperseded without touching state; a
// fetch failure flips the mode to ModeAuthRequired or ModeError, and
// the next success clears it.
func (c *Controller) Navigate(ctx context.Context, location string) (View, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	pos := c.router.Parse(location)
	klog.V(1).Infof("navigate %q -> album %q photo %q", location, pos.AlbumKey, pos.Photo)

	album, err := c.store.Album(ctx, pos.AlbumKey)
	if err != nil {
		c.fail(gen, err)
		return View{}, err
	}

	var photo *catalog.Photo
	idx := -1
	if pos.Photo != "" {
		// A stale photo link degrades to album view rather than erroring.
		if photo, idx = FindPhoto(album, pos.Photo); photo == nil {
			klog.Warningf("no media %q in album %q", pos.Photo, pos.AlbumKey)
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return View{}, ErrSuperseded
	}
	changed := c.current.Album != album
	if changed || c.current.Photo != photo {
		c.previous = c.current
		c.current = State{Album: album, Photo: photo, PhotoIndex: idx}
	}
	c.mode = ModeOK
	view := View{State: c.current, AlbumChanged: changed}
	c.mu.Unlock()

	if photo != nil {
		c.prefetchNeighbors(ctx, album, idx)
	}
	return view, nil
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if catalog.IsAccessDenied(err) {
		c.mode = ModeAuthRequired
	} else {
		c.mode = ModeError
	}
}

// prefetchNeighbors warms the previews of the photos before and after
// index, wrapping around at both ends, so paging feels instantaneous.
func (c *Controller) prefetchNeighbors(ctx context.Context, a *catalog.Album, idx int) {
	n := len(a.Media)
	if n < 2 || idx < 0 {
		return
	}
	neighbors := []*catalog.Photo{a.Media[(idx+1)%n], a.Media[(idx-1+n)%n]}
	if neighbors[0] == neighbors[1] {
		neighbors = neighbors[:1]
	}
	for _, p := range neighbors {
		c.prefetches.Add(1)
		go func(p *catalog.Photo) {
			defer c.prefetches.Done()
			c.warm(ctx, p)
		}(p)
	}
}

// warm fetches one rendition of p ahead of use. A definite miss means
// the manifest entry is stale, so the photo is pruned instead of being
// left to render as a broken image later. A gated rendition is kept:
// it becomes reachable once the session authenticates.
func (c *Controller) warm(ctx context.Context, p *catalog.Photo) {
	err := c.store.WarmPreview(ctx, p, p.BestPreview(c.PrefetchPx))
	if err == nil {
		return
	}
	var fe *catalog.FetchError
	if errors.As(err, &fe) && !fe.AccessDenied() {
		klog.V(1).Infof("preview gone, pruning %q: %v", p.Name, err)
		c.store.RemovePhoto(p, nil)
		return
	}
	klog.V(1).Infof("preview warm-up failed: %v", err)
}

// Drain blocks until outstanding preview warm-ups finish. Call it
// before tearing the session down.
func (c *Controller) Drain() {
	c.prefetches.Wait()
}

// PhotoFailed records that a rendition of p failed to display even
// though its manifest entry loaded. Per the stale-reference rules this
// is not an error state: the entry just stops existing.
func (c *Controller) PhotoFailed(p *catalog.Photo) {
	c.store.RemovePhoto(p, nil)
}

// AlbumFailed is the album-level counterpart of PhotoFailed.
func (c *Controller) AlbumFailed(a *catalog.Album) {
	c.store.RemoveAlbum(a, nil)
}

// AlbumThumbs resolves a representative photo for every subalbum of a,
// in listing order. A child whose subtree turns out to be empty or
// missing is pruned and skipped; a gated child is skipped but kept, so
// it reappears once the session authenticates.
func (c *Controller) AlbumThumbs(ctx context.Context, a *catalog.Album) []AlbumThumb {
	children := append([]*catalog.Album(nil), a.Albums...)
	out := make([]AlbumThumb, 0, len(children))
	for _, child := range children {
		owner, photo, err := c.store.RepresentativePhoto(ctx, child)
		if err == nil {
			out = append(out, AlbumThumb{Album: child, Owner: owner, Photo: photo})
			continue
		}
		if catalog.IsAccessDenied(err) {
			klog.V(1).Infof("skipping gated album %q", child.FullPath())
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		klog.V(1).Infof("pruning unresolvable album %q: %v", child.FullPath(), err)
		c.store.RemoveAlbum(child, a)
	}
	return out
}
