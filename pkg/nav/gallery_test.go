package nav

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

// testGallery fakes the static file server behind a catalog: manifests
// by canonical key, plus thumbnail paths that can be made to 404 or
// gated behind authentication.
type testGallery struct {
	mu        sync.Mutex
	manifests map[string]string
	status    map[string]int
	missing   map[string]bool
	gated     map[string]bool
	hits      map[string]int
}

func (g *testGallery) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hits[r.URL.Path]++

	if strings.HasPrefix(r.URL.Path, "/thumbs/") || strings.HasPrefix(r.URL.Path, "/albums/") {
		if g.gated[r.URL.Path] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if g.missing[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("bytes"))
		return
	}

	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	if st, ok := g.status[key]; ok {
		w.WriteHeader(st)
		return
	}
	m, ok := g.manifests[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte(m))
}

func (g *testGallery) fetches(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hits["/"+key+".json"]
}

func (g *testGallery) thumbHits(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hits[path]
}

func (g *testGallery) setStatus(key string, st int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[key] = st
}

func (g *testGallery) clearStatus(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.status, key)
}

func (g *testGallery) setMissing(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.missing[path] = true
}

func (g *testGallery) setGated(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gated[path] = true
}

func newTestCatalog(t *testing.T) (*catalog.Store, *testGallery) {
	t.Helper()
	g := &testGallery{
		manifests: map[string]string{
			"root": `{
				"path": "",
				"date": "2021-07-04T10:00:00Z",
				"media": [],
				"albums": [
					{"path": "Vacation 2021", "date": "2021-07-04T10:00:00Z"},
					{"path": "Old Stuff", "date": "2001-01-01T00:00:00Z"}
				]
			}`,
			"vacation_2021": `{
				"path": "Vacation 2021",
				"date": "2021-07-04T10:00:00Z",
				"media": [
					{"name": "IMG_001.JPG", "hash": "aab1c2", "size": [4000, 3000],
					 "mimeType": "image/jpeg", "previews": [150, 1024, "full"],
					 "date": "2021-07-01T09:00:00Z"},
					{"name": "IMG_003.JPG", "hash": "ffe9d8", "size": [4000, 3000],
					 "mimeType": "image/jpeg", "previews": [150, 1024, "full"],
					 "date": "2021-07-04T10:00:00Z"},
					{"name": "IMG_007.JPG", "hash": "0099aa", "size": [4000, 3000],
					 "mimeType": "image/jpeg", "previews": [150, 1024, "full"],
					 "date": "2021-07-05T10:00:00Z"}
				],
				"albums": []
			}`,
			"old_stuff": `{
				"path": "Old Stuff",
				"date": "2001-01-01T00:00:00Z",
				"media": [],
				"albums": [
					{"path": "Scans", "date": "2001-01-01T00:00:00Z"}
				]
			}`,
			"old_stuff-scans": `{
				"path": "Old Stuff/Scans",
				"date": "2001-01-01T00:00:00Z",
				"media": [
					{"name": "negative 01.png", "hash": "123456", "size": [800, 600],
					 "mimeType": "image/png", "previews": [150, "full"]}
				],
				"albums": []
			}`,
		},
		status:  map[string]int{},
		missing: map[string]bool{},
		gated:   map[string]bool{},
		hits:    map[string]int{},
	}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return catalog.NewStore(srv.URL, srv.URL+"/albums"), g
}
