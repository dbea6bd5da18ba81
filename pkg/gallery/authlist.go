package gallery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotokart/pkg/catalog"
)

// AuthList is the set of gated catalog paths, read from a text file
// with one path per line. Each line gates both its raw form and its
// canonical cache form, so album directories and the manifests derived
// from them are covered by the same entry. The file is re-read whenever
// it changes on disk.
type AuthList struct {
	path string

	mu       sync.RWMutex
	prefixes []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadAuthList reads path and starts watching it for changes. Blank
// lines and lines starting with # are skipped.
func LoadAuthList(path string) (*AuthList, error) {
	l := &AuthList{path: path, done: make(chan struct{})}
	if err := l.Reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	// Watch the directory: editors typically replace the file, which
	// would orphan a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	l.watcher = w
	go l.watch()
	return l, nil
}

func (l *AuthList) watch() {
	for {
		select {
		case <-l.done:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Name != l.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				klog.Infof("auth list changed (%s), reloading", event.Op)
				if err := l.Reload(); err != nil {
					klog.Errorf("auth list reload: %v", err)
				}
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			klog.Errorf("auth list watch: %v", err)
		}
	}
}

// Reload re-reads the list from disk.
func (l *AuthList) Reload() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open auth list: %w", err)
	}
	defer f.Close()

	var prefixes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prefixes = append(prefixes, line, catalog.CacheKey(line))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read auth list: %w", err)
	}

	l.mu.Lock()
	l.prefixes = prefixes
	l.mu.Unlock()
	klog.V(1).Infof("auth list: %d gated prefixes", len(prefixes))
	return nil
}

// Gated reports whether the catalog-relative path p falls under any
// gated prefix.
func (l *AuthList) Gated(p string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, pfx := range l.prefixes {
		if strings.HasPrefix(p, pfx) {
			return true
		}
	}
	return false
}

// Close stops the file watcher.
func (l *AuthList) Close() error {
	close(l.done)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
