// fotokart serves a pre-rendered photo catalog: static manifests and
// thumbnails, the viewer app, and the /auth endpoint that unlocks gated
// albums.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotokart/pkg/gallery"
)

var (
	addr       = flag.String("addr", "localhost:12900", "host:port to bind to")
	cacheDir   = flag.String("cache", "", "directory holding manifests and thumbnails")
	albumDir   = flag.String("albums", "", "directory holding original-quality assets")
	webDir     = flag.String("web", "", "directory holding the viewer app")
	authFile   = flag.String("auth-file", "", "optional list of gated paths, one per line")
	assetsDir  = flag.String("install-assets", "", "copy viewer assets from this directory into -web before serving")
	sessionKey = flag.String("session-key", "", "secret for session cookies (random per run if empty)")

	username      = flag.String("username", "", "viewer username accepted by /auth")
	password      = flag.String("password", "", "viewer password accepted by /auth")
	adminUsername = flag.String("admin-username", "", "admin username accepted by /auth")
	adminPassword = flag.String("admin-password", "", "admin password accepted by /auth")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *cacheDir == "" {
		klog.Exitf("--cache is a required flag")
	}
	if *albumDir == "" {
		klog.Exitf("--albums is a required flag")
	}
	if *webDir == "" {
		klog.Exitf("--web is a required flag")
	}

	key := *sessionKey
	if key == "" {
		key = randomKey()
		klog.Warningf("no --session-key given; sessions will not survive a restart")
	}

	if *assetsDir != "" {
		if err := gallery.InstallAssets(*assetsDir, *webDir); err != nil {
			klog.Exitf("install assets failed: %v", err)
		}
	}

	s, err := gallery.New(&gallery.Config{
		Addr:       *addr,
		CacheDir:   *cacheDir,
		AlbumDir:   *albumDir,
		WebDir:     *webDir,
		AuthFile:   *authFile,
		SessionKey: key,
		Viewer:     gallery.Credentials{Username: *username, Password: *password},
		Admin:      gallery.Credentials{Username: *adminUsername, Password: *adminPassword},
	})
	if err != nil {
		klog.Exitf("server setup failed: %v", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		klog.Exitf("listen failed: %v", err)
	}
}

func randomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		klog.Exitf("random key: %v", err)
	}
	return hex.EncodeToString(b)
}
