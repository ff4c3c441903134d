package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MaxRedirects bounds how many times one navigation may be redirected before
// Navigate gives up.
const MaxRedirects = 8

var ErrRedirectLoop = errors.New("too many navigation redirects")

// Event is published before a navigation commits.
type Event struct {
	Destination string
}

// Interceptor observes a pending navigation and returns Allowed to let it
// continue or Redirected to cancel it in favor of Decision.Redirect.
type Interceptor func(ctx context.Context, ev Event) Decision

type interceptorEntry struct {
	id uint64
	fn Interceptor
}

// Router tracks the current location and runs interceptors before every
// navigation commits. It is safe for concurrent use.
type Router struct {
	mu           sync.Mutex
	nextID       uint64
	interceptors []interceptorEntry
	current      string
}

func NewRouter() *Router {
	return &Router{}
}

// Registration is a scoped interceptor subscription.
type Registration struct {
	once   sync.Once
	remove func()
}

// Close deregisters the interceptor. Calling it more than once is a no-op.
func (r *Registration) Close() {
	if r == nil {
		return
	}
	r.once.Do(r.remove)
}

// OnNavigationStart registers fn to run, in registration order, before every
// navigation commits. Close the returned Registration to stop it.
func (r *Router) OnNavigationStart(fn Interceptor) *Registration {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.interceptors = append(r.interceptors, interceptorEntry{id: id, fn: fn})
	r.mu.Unlock()

	return &Registration{remove: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.interceptors {
			if e.id == id {
				r.interceptors = append(r.interceptors[:i:i], r.interceptors[i+1:]...)
				return
			}
		}
	}}
}

// Interceptors reports how many interceptors are registered.
func (r *Router) Interceptors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.interceptors)
}

// Current returns the last committed destination.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate runs the interceptors for destination, follows any redirect they
// issue, and commits the final destination, which it returns.
func (r *Router) Navigate(ctx context.Context, destination string) (string, error) {
	for range MaxRedirects + 1 {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		redirect, redirected := r.intercept(ctx, destination)
		if !redirected {
			r.mu.Lock()
			r.current = destination
			r.mu.Unlock()
			return destination, nil
		}
		destination = redirect
	}
	return "", fmt.Errorf("%w: last destination '%s'", ErrRedirectLoop, destination)
}

// intercept runs one navigation event past the interceptors, stopping at the
// first that cancels it.
func (r *Router) intercept(ctx context.Context, destination string) (string, bool) {
	r.mu.Lock()
	interceptors := make([]interceptorEntry, len(r.interceptors))
	copy(interceptors, r.interceptors)
	r.mu.Unlock()

	ev := Event{Destination: destination}
	for _, e := range interceptors {
		if d := e.fn(ctx, ev); d.Verdict == Redirected {
			return d.Redirect, true
		}
	}
	return "", false
}

// Attach registers the guard as a navigation interceptor on router.
func (g *Guard) Attach(router *Router) *Registration {
	return router.OnNavigationStart(func(ctx context.Context, ev Event) Decision {
		return g.Check(ctx, ev.Destination)
	})
}
