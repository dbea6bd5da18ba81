package catalog

import "k8s.io/klog/v2"

// Pruning repairs the in-memory catalog graph when content referenced
// by a manifest turns out to be unreachable at runtime: a broken
// thumbnail, a 403 or a 404 on something the manifest still lists. The
// dangling entry is removed quietly, and ancestors that end up with
// neither media nor subalbums are removed with it, so the reachable
// graph never contains an empty album.

// RemovePhoto drops p from album's media list. A nil album means p's
// own parent link. If the album is left empty it is removed from its
// parent in turn, cascading toward the root.
func (s *Store) RemovePhoto(p *Photo, album *Album) {
	if album == nil {
		album = p.parent
	}
	if album == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	klog.V(1).Infof("pruning photo %q from %q", p.Name, album.Path)
	album.Media = withoutPhoto(album.Media, p)
	if album.Empty() {
		s.removeAlbumLocked(album, album.parent)
	}
}

// RemoveAlbum drops album from parent's subalbum list. A nil parent
// means album's own parent link. Ancestors left empty are removed as
// well; the cascade stops at the first non-empty ancestor or at the
// root, which is never removed.
func (s *Store) RemoveAlbum(album *Album, parent *Album) {
	if parent == nil {
		parent = album.parent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAlbumLocked(album, parent)
}

func (s *Store) removeAlbumLocked(album *Album, parent *Album) {
	klog.V(1).Infof("pruning album %q", album.FullPath())
	s.evictLocked(album)
	if parent == nil {
		return
	}
	parent.Albums = withoutAlbum(parent.Albums, album)
	if parent.Empty() {
		s.removeAlbumLocked(parent, parent.parent)
	}
}

// evictLocked drops album and every materialized descendant from the
// key map so a later navigation cannot resurrect the pruned subtree.
func (s *Store) evictLocked(album *Album) {
	delete(s.albums, CacheKey(album.FullPath()))
	for _, c := range album.Albums {
		if c.loaded {
			s.evictLocked(c)
		}
	}
}

// The filters allocate fresh slices: callers iterating over a snapshot
// of the old listing must not observe it shifting underneath them.
func withoutPhoto(media []*Photo, p *Photo) []*Photo {
	out := make([]*Photo, 0, len(media))
	for _, m := range media {
		if m != p {
			out = append(out, m)
		}
	}
	return out
}

func withoutAlbum(albums []*Album, a *Album) []*Album {
	out := make([]*Album, 0, len(albums))
	for _, c := range albums {
		if c != a {
			out = append(out, c)
		}
	}
	return out
}
