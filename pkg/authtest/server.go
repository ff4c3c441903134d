package authtest

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Server is a Remote listening on a local test server.
type Server struct {
	*Remote
	URL        string
	RefreshURL string

	srv *httptest.Server
}

// NewServer starts a Remote and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	remote := NewRemote()
	srv := httptest.NewServer(remote.Handler())
	t.Cleanup(srv.Close)

	return &Server{
		Remote:     remote,
		URL:        srv.URL,
		RefreshURL: srv.URL + DefaultRefreshPath,
		srv:        srv,
	}
}

// HoldRefreshUntil gates refresh calls until at least n resource requests have
// been answered 401, or until timeout passes. It makes concurrent callers all
// observe the expired token before any refresh completes.
func (s *Server) HoldRefreshUntil(n int, timeout time.Duration) {
	s.hold(func() bool { return s.Unauthorized() >= n }, timeout)
}

// HoldRefreshCalls gates refresh calls until n of them have arrived, or until
// timeout passes.
func (s *Server) HoldRefreshCalls(n int, timeout time.Duration) {
	s.hold(func() bool { return s.RefreshCalls() >= n }, timeout)
}

func (s *Server) hold(ready func() bool, timeout time.Duration) {
	var once sync.Once
	release := make(chan struct{})

	go func() {
		deadline := time.Now().Add(timeout)
		for time.Now().Before(deadline) {
			if ready() {
				break
			}
			time.Sleep(2 * time.Millisecond)
		}
		once.Do(func() { close(release) })
	}()

	s.GateRefresh(func() { <-release })
}
