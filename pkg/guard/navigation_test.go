package guard_test

import (
	"context"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"git.sr.ht/~jakintosh/bearer/pkg/guard"
)

func attachedGuard(t *testing.T, store credentials.Store, opts guard.Options) *guard.Router {
	t.Helper()
	opts.Store = store
	router := guard.NewRouter()
	reg := guard.New(opts).Attach(router)
	t.Cleanup(reg.Close)
	return router
}

func TestNavigate_WithoutCredential(t *testing.T) {
	t.Parallel()
	router := attachedGuard(t, credentials.NewMemoryStore(), guard.Options{})

	dest, err := router.Navigate(context.Background(), "/")
	if err != nil || dest != "/" {
		t.Fatalf("expected / to commit, got %q (%v)", dest, err)
	}

	dest, err = router.Navigate(context.Background(), "/manager/reservations")
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if dest != "/" {
		t.Errorf("expected redirect to /, got %q", dest)
	}
	if router.Current() != "/" {
		t.Errorf("expected / committed, got %q", router.Current())
	}
}

func TestNavigate_DoubleSlashWithoutCredential(t *testing.T) {
	t.Parallel()
	router := attachedGuard(t, credentials.NewMemoryStore(), guard.Options{})

	for _, destination := range []string{"//manager", "//manager?x=1", "//manager#top"} {
		dest, err := router.Navigate(context.Background(), destination)
		if err != nil {
			t.Fatalf("Navigate(%q) failed: %v", destination, err)
		}
		if dest != "/" {
			t.Errorf("expected %q redirected to /, got %q", destination, dest)
		}
	}
	if router.Current() != "/" {
		t.Errorf("expected / committed, got %q", router.Current())
	}
}

func TestNavigate_WithCredential(t *testing.T) {
	t.Parallel()
	store := credentials.NewMemoryStoreWith(credentials.Pair{AccessToken: "stale-but-present"})
	router := attachedGuard(t, store, guard.Options{})

	dest, err := router.Navigate(context.Background(), "/manager/reservations")
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if dest != "/manager/reservations" {
		t.Errorf("expected navigation to proceed, got %q", dest)
	}
}

func TestNavigate_RedirectLoop(t *testing.T) {
	t.Parallel()
	// nothing is public, so the redirect target is itself redirected
	router := attachedGuard(t, credentials.NewMemoryStore(), guard.Options{
		Public: guard.NewAllowList(),
	})

	_, err := router.Navigate(context.Background(), "/orders")
	if !errors.Is(err, guard.ErrRedirectLoop) {
		t.Fatalf("expected ErrRedirectLoop, got %v", err)
	}
	if router.Current() != "" {
		t.Errorf("expected nothing committed, got %q", router.Current())
	}
}

func TestNavigate_CancelledContext(t *testing.T) {
	t.Parallel()
	router := guard.NewRouter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := router.Navigate(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRegistration_CloseDeregistersOnce(t *testing.T) {
	t.Parallel()
	router := guard.NewRouter()
	g := guard.New(guard.Options{})

	first := g.Attach(router)
	second := router.OnNavigationStart(func(ctx context.Context, ev guard.Event) guard.Decision {
		return guard.Decision{Verdict: guard.Allowed, Destination: ev.Destination}
	})
	if router.Interceptors() != 2 {
		t.Fatalf("expected 2 interceptors, got %d", router.Interceptors())
	}

	first.Close()
	first.Close()
	if router.Interceptors() != 1 {
		t.Fatalf("expected 1 interceptor after close, got %d", router.Interceptors())
	}

	// with the guard gone, protected paths commit
	dest, err := router.Navigate(context.Background(), "/orders")
	if err != nil || dest != "/orders" {
		t.Errorf("expected /orders to commit, got %q (%v)", dest, err)
	}

	second.Close()
	if router.Interceptors() != 0 {
		t.Errorf("expected no interceptors, got %d", router.Interceptors())
	}
}

func TestRouter_InterceptorOrder(t *testing.T) {
	t.Parallel()
	router := guard.NewRouter()

	var seen []string
	router.OnNavigationStart(func(ctx context.Context, ev guard.Event) guard.Decision {
		seen = append(seen, "first:"+ev.Destination)
		if ev.Destination == "/old" {
			return guard.Decision{Verdict: guard.Redirected, Destination: ev.Destination, Redirect: "/new"}
		}
		return guard.Decision{Verdict: guard.Allowed, Destination: ev.Destination}
	})
	router.OnNavigationStart(func(ctx context.Context, ev guard.Event) guard.Decision {
		seen = append(seen, "second:"+ev.Destination)
		return guard.Decision{Verdict: guard.Allowed, Destination: ev.Destination}
	})

	dest, err := router.Navigate(context.Background(), "/old")
	if err != nil || dest != "/new" {
		t.Fatalf("expected /new, got %q (%v)", dest, err)
	}

	want := []string{"first:/old", "first:/new", "second:/new"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("expected %v, got %v", want, seen)
			break
		}
	}
}
