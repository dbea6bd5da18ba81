package nav

import (
	"context"
	"testing"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

func TestRouterParse(t *testing.T) {
	r := &Router{Prefix: "/view"}

	tests := []struct {
		loc   string
		album string
		photo string
	}{
		{"/view", "root", ""},
		{"/view/", "root", ""},
		{"", "root", ""},
		{"/view/vacation_2021", "vacation_2021", ""},
		{"/view/vacation_2021/", "vacation_2021", ""},
		{"/view/vacation_2021/img_003.jpg", "vacation_2021", "img_003.jpg"},
		{"/view/old_stuff-scans/negative_01.png", "old_stuff-scans", "negative_01.png"},
	}
	for _, tt := range tests {
		got := r.Parse(tt.loc)
		if got.AlbumKey != tt.album || got.Photo != tt.photo {
			t.Errorf("Parse(%q) = %+v, want album %q photo %q", tt.loc, got, tt.album, tt.photo)
		}
	}
}

func TestFindPhotoCaseInsensitive(t *testing.T) {
	s, _ := newTestCatalog(t)
	a, err := s.Album(context.Background(), "vacation_2021")
	if err != nil {
		t.Fatalf("Album: %v", err)
	}

	// The on-disk name is IMG_003.JPG; the location carries its
	// canonical form.
	p, idx := FindPhoto(a, "img_003.jpg")
	if p == nil || p.Name != "IMG_003.JPG" || idx != 1 {
		t.Fatalf("FindPhoto = %v at %d, want IMG_003.JPG at 1", p, idx)
	}

	if p, idx := FindPhoto(a, "gone.jpg"); p != nil || idx != -1 {
		t.Errorf("stale segment resolved to %v at %d", p, idx)
	}
}

// TestRoundTrip checks that the location built for every album and
// photo reachable from the root parses back to the very same node.
func TestRoundTrip(t *testing.T) {
	s, _ := newTestCatalog(t)
	r := &Router{Prefix: "/view"}
	ctx := context.Background()

	root, err := s.Album(ctx, "")
	if err != nil {
		t.Fatalf("Album(root): %v", err)
	}

	var walk func(a *catalog.Album)
	walk = func(a *catalog.Album) {
		pos := r.Parse(r.Location(AlbumHash(a)))
		back, err := s.Album(ctx, pos.AlbumKey)
		if err != nil {
			t.Fatalf("round-trip fetch %q: %v", pos.AlbumKey, err)
		}
		if back != a {
			t.Errorf("album %q round-tripped to %q", a.FullPath(), back.FullPath())
		}

		for i, p := range a.Media {
			pos := r.Parse(r.Location(PhotoHash(a, p)))
			backAlbum, err := s.Album(ctx, pos.AlbumKey)
			if err != nil {
				t.Fatalf("round-trip fetch %q: %v", pos.AlbumKey, err)
			}
			backPhoto, idx := FindPhoto(backAlbum, pos.Photo)
			if backAlbum != a || backPhoto != p || idx != i {
				t.Errorf("photo %q/%q round-tripped to %v at %d", a.FullPath(), p.Name, backPhoto, idx)
			}
		}

		for _, link := range append([]*catalog.Album(nil), a.Albums...) {
			child, err := s.Child(ctx, a, link)
			if err != nil {
				t.Fatalf("Child(%q): %v", link.Path, err)
			}
			walk(child)
		}
	}
	walk(root)
}
