// fotosjekk checks a catalog cache directory for rot: manifests whose
// thumbnails are missing, child links pointing at manifests that do not
// exist, and orphan manifests no longer reachable from the root. It
// resolves the tree through the same store and pruning logic the viewer
// uses, so its report matches what a client session would silently drop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

var (
	cacheDir = flag.String("cache", "", "catalog cache directory to check")
	albumDir = flag.String("albums", "", "optional originals directory; also verifies full-size assets")
	strict   = flag.Bool("strict", false, "exit non-zero when problems are found")
)

// checker walks a catalog through a file-backed store, pruning what a
// client would prune and counting the damage.
type checker struct {
	store         *catalog.Store
	visited       map[string]bool
	missingThumbs int
	deadAlbums    int
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *cacheDir == "" {
		klog.Exitf("--cache is a required flag")
	}

	// The viewer's store works over any http.Client; a file transport
	// points it straight at the local cache directory.
	t := &http.Transport{}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir(*cacheDir)))
	store := catalog.NewStore("file://", "file:///originals")
	store.Client = &http.Client{Transport: t}

	c := &checker{store: store, visited: map[string]bool{}}

	ctx := context.Background()
	root, err := store.Album(ctx, "")
	if err != nil {
		klog.Exitf("root manifest unreadable: %v", err)
	}
	c.check(ctx, root)

	orphans, err := c.findOrphans()
	if err != nil {
		klog.Exitf("scan for orphans failed: %v", err)
	}

	klog.Infof("checked %d albums: %d missing thumbnails, %d dead albums, %d orphan manifests",
		len(c.visited), c.missingThumbs, c.deadAlbums, len(orphans))
	for _, o := range orphans {
		klog.Infof("orphan manifest: %s", o)
	}

	if *strict && (c.missingThumbs > 0 || c.deadAlbums > 0 || len(orphans) > 0) {
		os.Exit(1)
	}
}

func (c *checker) check(ctx context.Context, a *catalog.Album) {
	key := catalog.CacheKey(a.FullPath())
	c.visited[key] = true
	klog.V(1).Infof("checking %q: %d media, %d albums", key, len(a.Media), len(a.Albums))

	for _, p := range append([]*catalog.Photo(nil), a.Media...) {
		if !c.thumbsExist(p) {
			c.missingThumbs++
			c.store.RemovePhoto(p, a)
		}
	}

	for _, link := range append([]*catalog.Album(nil), a.Albums...) {
		child, err := c.store.Child(ctx, a, link)
		if err != nil {
			klog.Warningf("dead album link %q: %v", link.FullPath(), err)
			c.deadAlbums++
			c.store.RemoveAlbum(link, a)
			continue
		}
		c.check(ctx, child)
	}
}

// thumbsExist verifies every declared rendition of p on disk. The full
// sentinel lives under the originals directory and is only checked when
// one was given.
func (c *checker) thumbsExist(p *catalog.Photo) bool {
	ok := true
	for _, pv := range p.Previews {
		var path string
		if pv.Full {
			if *albumDir == "" {
				continue
			}
			path = filepath.Join(*albumDir, filepath.FromSlash(p.Parent().FullPath()), p.Name)
		} else {
			if len(p.Hash) < 3 {
				klog.Warningf("media %q has no usable hash", p.Name)
				ok = false
				continue
			}
			ext := "jpg"
			if p.IsVideo() {
				ext = "mp4"
			}
			path = filepath.Join(*cacheDir, "thumbs", p.Hash[:2], fmt.Sprintf("%s_%s.%s", p.Hash[2:], pv, ext))
		}
		if _, err := os.Stat(path); err != nil {
			klog.Warningf("missing rendition for %q: %s", p.Name, path)
			ok = false
		}
	}
	return ok
}

// findOrphans walks the cache directory for manifests that were never
// reached from the root.
func (c *checker) findOrphans() ([]string, error) {
	var orphans []string
	err := godirwalk.Walk(*cacheDir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if de.Name() == "thumbs" {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !strings.HasSuffix(path, ".json") {
				return nil
			}
			key := strings.TrimSuffix(filepath.Base(path), ".json")
			if !c.visited[key] {
				orphans = append(orphans, key)
			}
			return nil
		},
	})
	return orphans, err
}
