package gallery

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path"

	"github.com/labstack/echo/v4"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotokart/pkg/catalog"
	"github.com/tstromberg/fotokart/pkg/nav"
)

//go:embed assets/browse.tmpl
var browseTmpl string

// browsePrefix is where the server-rendered fallback lives. The
// JavaScript viewer under /view stays the primary surface; /browse
// serves the same catalog positions as plain HTML for clients without
// scripting.
const browsePrefix = "/browse"

// browser renders album and photo pages straight off the cache
// directory, through the same store, router, and pruning logic the
// client-side navigator uses.
type browser struct {
	// store fetches manifests through a file transport; urls is only
	// used to build the HTTP-facing thumbnail and original links.
	store  *catalog.Store
	urls   *catalog.Store
	router *nav.Router
	tmpl   *template.Template
	auth   *AuthList
}

func newBrowser(cacheDir string, auth *AuthList) (*browser, error) {
	tmpl, err := template.New("browse").Parse(browseTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse browse template: %w", err)
	}

	t := &http.Transport{}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir(cacheDir)))
	store := catalog.NewStore("file://", "/albums")
	store.Client = &http.Client{Transport: t}

	return &browser{
		store:  store,
		urls:   catalog.NewStore("/cache", "/albums"),
		router: &nav.Router{Prefix: browsePrefix},
		tmpl:   tmpl,
		auth:   auth,
	}, nil
}

// tile is one rendered thumbnail cell: a subalbum or a photo.
type tile struct {
	Title string
	Href  string
	Thumb string
}

// photoPage is the single-photo view with circular paging links.
type photoPage struct {
	Name     string
	Preview  string
	Original string
	PrevHref string
	NextHref string
	Photo    *catalog.Photo
}

type browsePage struct {
	Title     string
	AlbumHref string
	Subalbums []tile
	Photos    []tile
	Photo     *photoPage
}

func (b *browser) handle(c echo.Context) error {
	p, err := url.PathUnescape(c.Request().URL.Path)
	if err != nil {
		p = c.Request().URL.Path
	}
	pos := b.router.Parse(p)
	authed := authenticated(c)

	if b.gated(pos.AlbumKey) && !authed {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	ctx := c.Request().Context()
	album, err := b.store.Album(ctx, pos.AlbumKey)
	if err != nil {
		if catalog.IsAccessDenied(err) {
			return echo.NewHTTPError(http.StatusForbidden)
		}
		klog.V(1).Infof("browse %q: %v", pos.AlbumKey, err)
		return echo.NewHTTPError(http.StatusNotFound)
	}

	page := b.albumPage(ctx, album, authed)
	if pos.Photo != "" {
		// A stale photo segment degrades to the album view.
		if photo, idx := nav.FindPhoto(album, pos.Photo); photo != nil {
			page.Photo = b.photoPage(album, photo, idx)
		}
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("render browse page: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (b *browser) gated(key string) bool {
	return b.auth != nil && b.auth.Gated(key)
}

func (b *browser) albumPage(ctx context.Context, album *catalog.Album, authed bool) browsePage {
	page := browsePage{
		Title:     path.Base(album.FullPath()),
		AlbumHref: b.router.Location(nav.AlbumHash(album)),
	}
	if album.FullPath() == "" {
		page.Title = "Albums"
	}

	for _, link := range append([]*catalog.Album(nil), album.Albums...) {
		key := catalog.CacheKey(link.FullPath())
		if b.gated(key) && !authed {
			continue
		}
		_, photo, err := b.store.RepresentativePhoto(ctx, link)
		if err != nil {
			klog.V(1).Infof("pruning unresolvable album %q: %v", link.FullPath(), err)
			b.store.RemoveAlbum(link, album)
			continue
		}
		page.Subalbums = append(page.Subalbums, tile{
			Title: path.Base(link.FullPath()),
			Href:  b.router.Location(nav.AlbumHash(link)),
			Thumb: b.urls.ThumbURL(photo, photo.BestPreview(300)),
		})
	}

	for _, p := range album.Media {
		page.Photos = append(page.Photos, tile{
			Title: p.Name,
			Href:  b.router.Location(nav.PhotoHash(album, p)),
			Thumb: b.urls.ThumbURL(p, p.BestPreview(300)),
		})
	}
	return page
}

func (b *browser) photoPage(album *catalog.Album, photo *catalog.Photo, idx int) *photoPage {
	n := len(album.Media)
	prev := album.Media[(idx-1+n)%n]
	next := album.Media[(idx+1)%n]
	return &photoPage{
		Name:     photo.Name,
		Preview:  b.urls.ThumbURL(photo, photo.BestPreview(1024)),
		Original: b.urls.OriginalURL(photo),
		PrevHref: b.router.Location(nav.PhotoHash(album, prev)),
		NextHref: b.router.Location(nav.PhotoHash(album, next)),
		Photo:    photo,
	}
}
