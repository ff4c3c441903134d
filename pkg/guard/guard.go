// Package guard gates navigation on the presence of a stored credential.
//
// A Guard evaluates each navigation on its own: when no access token is stored
// and the destination is not on the public allow-list, the navigation is
// redirected to the public entry point. The token is never validated here; a
// stale token still passes, and the request client discovers that on its first
// call.
package guard

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

const DefaultRedirectPath = "/"

type Verdict int

const (
	Allowed Verdict = iota
	Redirected
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Redirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one navigation check. Redirect is only set when
// the verdict is Redirected.
type Decision struct {
	Verdict     Verdict
	Destination string
	Redirect    string
}

func (d Decision) Allowed() bool {
	return d.Verdict == Allowed
}

type Options struct {
	// Store is read for the access token. Defaults to an empty MemoryStore,
	// which redirects every protected destination.
	Store credentials.Store
	// Public defaults to DefaultAllowList.
	Public *AllowList
	// RedirectPath defaults to DefaultRedirectPath.
	RedirectPath string
	LogLevel     logging.Level
}

type Guard struct {
	store    credentials.Store
	public   *AllowList
	redirect string
	log      *logging.Logger
}

func New(opts Options) *Guard {
	g := &Guard{
		store:    opts.Store,
		public:   opts.Public,
		redirect: opts.RedirectPath,
		log:      logging.New("guard", opts.LogLevel),
	}
	if g.store == nil {
		g.store = credentials.NewMemoryStore()
	}
	if g.public == nil {
		g.public = DefaultAllowList()
	}
	if g.redirect == "" {
		g.redirect = DefaultRedirectPath
	}
	return g
}

// Public returns the allow-list the guard consults, so callers can replace it
// at runtime.
func (g *Guard) Public() *AllowList {
	return g.public
}

// Check decides whether navigating to destination may proceed. Destination
// may be a bare path or a URL; only its path is matched.
func (g *Guard) Check(ctx context.Context, destination string) Decision {
	return g.check(ctx, g.store, destination)
}

func (g *Guard) check(ctx context.Context, store credentials.Store, destination string) Decision {
	decision := Decision{Verdict: Allowed, Destination: destination}

	if g.hasAccessToken(ctx, store) {
		return decision
	}
	path := destinationPath(destination)
	if g.public.Contains(path) {
		return decision
	}

	g.log.Debugf("no credential for %s; redirecting to %s\n", path, g.redirect)
	decision.Verdict = Redirected
	decision.Redirect = g.redirect
	return decision
}

func (g *Guard) hasAccessToken(ctx context.Context, store credentials.Store) bool {
	token, err := store.Get(ctx, credentials.AccessTokenKey)
	if err != nil {
		if !errors.Is(err, credentials.ErrAbsent) {
			g.log.Errorf("failed to read access token: %v\n", err)
		}
		return false
	}
	return token != ""
}

// destinationPath extracts the path a navigation targets. Only a destination
// with a scheme is read as a URL; anything else is a path, so "//manager"
// stays "//manager" rather than naming a host.
func destinationPath(destination string) string {
	if u, err := url.Parse(destination); err == nil && u.Scheme != "" {
		if u.Path == "" {
			return "/"
		}
		return u.Path
	}
	if i := strings.IndexAny(destination, "?#"); i >= 0 {
		destination = destination[:i]
	}
	if destination == "" {
		return "/"
	}
	return destination
}
