// Package router maps view paths to views and keeps unauthenticated
// sessions out of protected ones.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/mux"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

type View string

const (
	Login         View = "login"
	Signup        View = "signup"
	Stream        View = "stream"
	Public        View = "public"
	Profile       View = "profile"
	Post          View = "post"
	Permalink     View = "permalink"
	Notifications View = "notifications"
	Search        View = "search"
	EditProfile   View = "edit-profile"
)

var ErrNoRoute = errors.New("no such view")

type Authenticator interface {
	Authenticated() bool
}

// Resolution is where a navigation ended up. When Redirect is set the
// requested view was not rendered.
type Resolution struct {
	Path     string
	View     View
	Vars     map[string]string
	Redirect string
}

type Router struct {
	routes    *mux.Router
	session   Authenticator
	protected map[View]bool

	lock    sync.Mutex
	hooks   []func()
	current Resolution
}

func New(session Authenticator) *Router {
	r := &Router{
		routes:    mux.NewRouter().UseEncodedPath(),
		session:   session,
		protected: make(map[View]bool),
	}
	r.add("/login", Login, false)
	r.add("/signup", Signup, false)
	r.add("/", Stream, true)
	r.add("/public", Public, true)
	r.add("/authors/{authorId}", Profile, true)
	r.add("/authors/{authorId}/posts/{postId}", Post, true)
	r.add("/posts/{postId}", Permalink, true)
	r.add("/notifications", Notifications, true)
	r.add("/search", Search, true)
	r.add("/profile/edit", EditProfile, true)
	return r
}

func (r *Router) add(path string, view View, protected bool) {
	r.routes.Path(path).Name(string(view)).Methods(http.MethodGet)
	r.protected[view] = protected
}

// OnNavigate registers a hook run after every navigation
func (r *Router) OnNavigate(hook func()) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Navigate resolves path to a view, or to a login redirect when the
// view is protected and nobody is logged in.
func (r *Router) Navigate(path string) (Resolution, error) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}
	var match mux.RouteMatch
	if !r.routes.Match(req, &match) || match.Route == nil {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}

	view := View(match.Route.GetName())
	vars := make(map[string]string, len(match.Vars))
	for k, v := range match.Vars {
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		vars[k] = v
	}
	res := Resolution{Path: path, View: view, Vars: vars}
	if r.protected[view] && !r.session.Authenticated() {
		telemetry.Trace("redirecting %s to login", path)
		res = Resolution{
			Path:     path,
			View:     Login,
			Vars:     map[string]string{},
			Redirect: "/login?" + url.Values{"next": {path}}.Encode(),
		}
	}

	r.lock.Lock()
	r.current = res
	hooks := append([]func(){}, r.hooks...)
	r.lock.Unlock()
	for _, hook := range hooks {
		hook()
	}
	return res, nil
}

func (r *Router) Current() Resolution {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.current
}

// Path builds the path of a view from name/value pairs
func (r *Router) Path(view View, pairs ...string) (string, error) {
	route := r.routes.Get(string(view))
	if route == nil {
		return "", fmt.Errorf("%w: %s", ErrNoRoute, view)
	}
	escaped := make([]string, len(pairs))
	for i, p := range pairs {
		if i%2 == 1 {
			p = url.PathEscape(p)
		}
		escaped[i] = p
	}
	u, err := route.URLPath(escaped...)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// Protected reports whether a view needs a session
func (r *Router) Protected(view View) bool {
	return r.protected[view]
}
