// Package gallery serves a pre-rendered photo catalog: the static
// manifests and thumbnails the client navigator fetches, the viewer
// app, and the authentication endpoint that unlocks gated albums for a
// session.
package gallery

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

const sessionName = "fotokart"

// Credentials is one username/password pair accepted by /auth.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) match(user, pass string) bool {
	if c.Username == "" {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(c.Username), []byte(user))
	p := subtle.ConstantTimeCompare([]byte(c.Password), []byte(pass))
	return u == 1 && p == 1
}

// Config holds gallery server configuration.
type Config struct {
	Addr string

	// CacheDir holds manifests and hash-named thumbnails; AlbumDir
	// holds the original-quality assets, laid out by album path.
	CacheDir string
	AlbumDir string

	// WebDir is the viewer app root. Requests under /view serve its
	// index.html so the client router owns the rest of the path.
	WebDir string

	// AuthFile optionally names a list of gated paths; empty means
	// nothing is gated.
	AuthFile string

	// SessionKey signs the session cookie.
	SessionKey string

	Viewer Credentials
	Admin  Credentials
}

// Server serves one catalog.
type Server struct {
	cfg     *Config
	echo    *echo.Echo
	auth    *AuthList
	browser *browser
}

// New wires up routes and, when configured, the gated-path list.
func New(cfg *Config) (*Server, error) {
	s := &Server{cfg: cfg}

	if cfg.AuthFile != "" {
		l, err := LoadAuthList(cfg.AuthFile)
		if err != nil {
			return nil, err
		}
		s.auth = l
	}

	b, err := newBrowser(cfg.CacheDir, s.auth)
	if err != nil {
		return nil, err
	}
	s.browser = b

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.SessionKey))))

	e.GET("/auth", s.handleAuth)
	e.Group("/cache", s.requireAccess("/cache/")).Static("/", cfg.CacheDir)
	e.Group("/albums", s.requireAccess("/albums/")).Static("/", cfg.AlbumDir)

	// The viewer owns everything under the view prefix; it reads the
	// location itself, so any such path serves the same page.
	e.GET("/view*", func(c echo.Context) error {
		return c.File(cfg.WebDir + "/index.html")
	})
	e.GET(browsePrefix+"*", s.browser.handle)
	e.Static("/", cfg.WebDir)

	s.echo = e
	return s, nil
}

// Start listens on the configured address and blocks.
func (s *Server) Start() error {
	klog.Infof("gallery listening on %s (cache=%s albums=%s)", s.cfg.Addr, s.cfg.CacheDir, s.cfg.AlbumDir)
	return s.echo.Start(s.cfg.Addr)
}

// ServeHTTP makes the server usable under httptest and other stdlib
// plumbing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Close releases the auth-list watcher.
func (s *Server) Close() error {
	if s.auth != nil {
		return s.auth.Close()
	}
	return nil
}

// handleAuth grants a session when the supplied credentials match the
// viewer or admin user. The viewer client calls it with query
// parameters and treats anything but 200 as a failed login.
func (s *Server) handleAuth(c echo.Context) error {
	sess, _ := session.Get(sessionName, c)
	if sess.Values["user"] != nil {
		return c.NoContent(http.StatusOK)
	}

	user := c.QueryParam("username")
	pass := c.QueryParam("password")
	var role string
	switch {
	case s.cfg.Viewer.match(user, pass):
		role = "viewer"
	case s.cfg.Admin.match(user, pass):
		role = "admin"
	default:
		klog.V(1).Infof("failed login for %q", user)
		return echo.NewHTTPError(http.StatusForbidden)
	}

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
	}
	sess.Values["user"] = role
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session save failed")
	}
	klog.Infof("login: %s", role)
	return c.NoContent(http.StatusOK)
}

// requireAccess 403s requests for gated paths unless the session is
// authenticated. Thumbnails are hash-named and effectively ungated;
// the list protects manifests and original assets, whose names mirror
// album paths.
func (s *Server) requireAccess(prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.auth == nil {
				return next(c)
			}
			p, err := url.PathUnescape(c.Request().URL.Path)
			if err != nil {
				p = c.Request().URL.Path
			}
			rel := strings.TrimPrefix(p, prefix)
			if !s.auth.Gated(rel) {
				return next(c)
			}
			if authenticated(c) {
				return next(c)
			}
			klog.V(1).Infof("denying gated path %q", rel)
			return echo.NewHTTPError(http.StatusForbidden)
		}
	}
}

func authenticated(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	return sess.Values["user"] != nil
}

// InstallAssets copies the viewer app from src into the web root, the
// same way a generator deploys its static assets next to the cache.
func InstallAssets(src, dst string) error {
	klog.Infof("installing viewer assets: %s -> %s", src, dst)
	return copy.Copy(src, dst)
}
