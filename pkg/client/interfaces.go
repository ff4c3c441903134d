package client

import (
	"context"
	"io"
	"net/http"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

// Caller is the call surface pages and services consume. Depend on it rather
// than *Client so tests can substitute a fake.
type Caller interface {
	Do(req *http.Request) (*http.Response, error)
	Call(ctx context.Context, method string, path string, body io.Reader) (*http.Response, error)
	DoJSON(ctx context.Context, method string, path string, in any, out any) error
}

// Session manages the stored credentials behind a Caller.
type Session interface {
	SignIn(ctx context.Context, pair credentials.Pair) error
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context) (credentials.Pair, error)
}

// Compile-time check that *Client implements Caller and Session.
var _ Caller = (*Client)(nil)
var _ Session = (*Client)(nil)
var _ http.RoundTripper = (*Transport)(nil)
