package client_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/bearer/pkg/authtest"
	"git.sr.ht/~jakintosh/bearer/pkg/client"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

const concurrentCalls = 8

// callConcurrently issues n GETs at once and returns each call's error.
func callConcurrently(t *testing.T, c *client.Client, n int) []error {
	t.Helper()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Get(context.Background(), "/orders")
			if err != nil {
				errs[i] = err
				return
			}
			res.Body.Close()
			if res.StatusCode != http.StatusOK {
				errs[i] = &client.StatusError{Method: http.MethodGet, StatusCode: res.StatusCode}
			}
		}()
	}
	wg.Wait()
	return errs
}

func TestConcurrent_SharedRefreshRunsOnce(t *testing.T) {
	t.Parallel()
	srv := authtest.NewServer(t)
	pair := srv.IssuePair()
	srv.ExpireAccess(pair.AccessToken)
	srv.HoldRefreshUntil(concurrentCalls, 5*time.Second)
	store := credentials.NewMemoryStoreWith(pair)
	c := newClient(t, srv, store, client.RefreshShared)

	errs := callConcurrently(t, c, concurrentCalls)
	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d failed: %v", i, err)
		}
	}
	if srv.RefreshCalls() != 1 {
		t.Errorf("expected a single shared refresh, got %d", srv.RefreshCalls())
	}

	stored, _ := credentials.LoadPair(context.Background(), store)
	if !srv.ValidRefresh(stored.RefreshToken) {
		t.Error("stored refresh token was not the rotated one")
	}
}

func TestConcurrent_IndependentRefreshWithRotation(t *testing.T) {
	t.Parallel()
	srv := authtest.NewServer(t)
	pair := srv.IssuePair()
	srv.ExpireAccess(pair.AccessToken)
	srv.HoldRefreshCalls(concurrentCalls, 5*time.Second)
	c := newClient(t, srv, credentials.NewMemoryStoreWith(pair), client.RefreshIndependent)

	errs := callConcurrently(t, c, concurrentCalls)

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, client.ErrRefreshRejected):
			rejected++
		default:
			t.Errorf("unexpected failure: %v", err)
		}
	}
	if succeeded != 1 || rejected != concurrentCalls-1 {
		t.Errorf("expected 1 success and %d rejections, got %d and %d",
			concurrentCalls-1, succeeded, rejected)
	}
	if srv.RefreshCalls() != concurrentCalls {
		t.Errorf("expected %d refreshes, got %d", concurrentCalls, srv.RefreshCalls())
	}
}

func TestConcurrent_IndependentRefreshWithoutRotation(t *testing.T) {
	t.Parallel()
	srv := authtest.NewServer(t)
	srv.SetRotation(false)
	pair := srv.IssuePair()
	srv.ExpireAccess(pair.AccessToken)
	srv.HoldRefreshCalls(concurrentCalls, 5*time.Second)
	c := newClient(t, srv, credentials.NewMemoryStoreWith(pair), client.RefreshIndependent)

	errs := callConcurrently(t, c, concurrentCalls)
	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d failed: %v", i, err)
		}
	}
	if srv.RefreshCalls() != concurrentCalls {
		t.Errorf("expected one refresh per call, got %d", srv.RefreshCalls())
	}
}

func TestConcurrent_CancelledWaiterKeepsSession(t *testing.T) {
	t.Parallel()
	srv := authtest.NewServer(t)
	pair := srv.IssuePair()
	srv.ExpireAccess(pair.AccessToken)

	release := make(chan struct{})
	srv.GateRefresh(func() { <-release })
	var once sync.Once
	// registered after the server so it runs before the server closes
	t.Cleanup(func() { once.Do(func() { close(release) }) })

	store := credentials.NewMemoryStoreWith(pair)
	c := newClient(t, srv, store, client.RefreshShared)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "/orders")
		done <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for srv.RefreshCalls() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, client.ErrSessionExpired) {
			t.Error("a cancelled call must not end the session")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("call did not return after cancellation")
	}

	expectStored(t, store, pair)
	once.Do(func() { close(release) })
}
