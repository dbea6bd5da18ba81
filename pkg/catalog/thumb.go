package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoMedia is returned when an album's entire subtree holds no media.
// In a well-formed catalog only the root can be in that state; anywhere
// else it means the node should be pruned.
var ErrNoMedia = errors.New("album has no media")

// RepresentativePhoto picks the photo that visually stands in for album
// in a listing. An album with media is represented by its oldest photo;
// one without delegates to its most recently updated child, descending
// as deep as the catalog goes. Unloaded children are fetched on the
// way down.
func (s *Store) RepresentativePhoto(ctx context.Context, album *Album) (*Album, *Photo, error) {
	a := album
	for {
		if !a.loaded {
			var err error
			a, err = s.Child(ctx, a.parent, a)
			if err != nil {
				return nil, nil, err
			}
		}
		if len(a.Media) > 0 {
			return a, a.Media[0], nil
		}
		if len(a.Albums) == 0 {
			return nil, nil, ErrNoMedia
		}
		a = a.Albums[0]
	}
}

// ThumbURL returns the URL of one rendition of p. Renditions are named
// by content hash, sharded on the first two hex digits; the full
// sentinel maps to the original asset instead.
func (s *Store) ThumbURL(p *Photo, pv Preview) string {
	if pv.Full || len(p.Hash) < 3 {
		return s.OriginalURL(p)
	}
	return fmt.Sprintf("%s/thumbs/%s/%s_%s.%s", s.CacheRoot, p.Hash[:2], p.Hash[2:], pv, p.ext())
}

// OriginalURL returns the URL of p's original-quality asset, which is
// served by album path and filename rather than by hash.
func (s *Store) OriginalURL(p *Photo) string {
	var segs []string
	if a := p.parent; a != nil && a.FullPath() != "" {
		for _, seg := range strings.Split(a.FullPath(), "/") {
			segs = append(segs, url.PathEscape(seg))
		}
	}
	segs = append(segs, url.PathEscape(p.Name))
	return s.AlbumsRoot + "/" + strings.Join(segs, "/")
}

// WarmPreview fetches one rendition of p and throws the body away, so
// that the cache between us and the file server has it hot before the
// user pages to it. A non-OK status is reported as a *FetchError; the
// caller decides whether that means the entry should be pruned.
func (s *Store) WarmPreview(ctx context.Context, p *Photo, pv Preview) error {
	u := s.ThumbURL(p, pv)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("warm %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: u, Status: resp.StatusCode}
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
