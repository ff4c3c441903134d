package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

// Transport is an http.RoundTripper that attaches the stored access token to
// every request and, on the first 401 of a request, refreshes the credentials
// and replays the request once.
type Transport struct {
	base      http.RoundTripper
	store     credentials.Store
	refresher *refresher
	log       *logging.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	a, err := newAttempt(req)
	if err != nil {
		return nil, err
	}

	token := t.accessToken(ctx)
	for {
		res, err := t.base.RoundTrip(a.build(token))
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusUnauthorized {
			return res, nil
		}
		if !a.retry() {
			t.log.Debugf("%s %s: unauthorized after retry\n", req.Method, req.URL.Redacted())
			return res, nil
		}
		discard(res)

		t.log.Debugf("%s %s: unauthorized; refreshing credentials\n", req.Method, req.URL.Redacted())
		token, err = t.refresher.renew(ctx, token)
		if err != nil {
			return nil, t.fail(ctx, req, err)
		}
	}
}

// accessToken reads the credential to attach. A missing or unreadable token
// means the request goes out unauthenticated.
func (t *Transport) accessToken(ctx context.Context) string {
	token, err := t.store.Get(ctx, credentials.AccessTokenKey)
	if err != nil {
		if !errors.Is(err, credentials.ErrAbsent) {
			t.log.Errorf("failed to read access token: %v\n", err)
		}
		return ""
	}
	return token
}

// fail ends the session after a failed refresh. A caller that gave up while
// waiting gets its context error and leaves the store alone.
func (t *Transport) fail(ctx context.Context, req *http.Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	t.log.Infof("%s %s: refresh failed, clearing credentials: %v\n", req.Method, req.URL.Redacted(), err)
	if clearErr := credentials.Clear(ctx, t.store); clearErr != nil {
		t.log.Errorf("failed to clear credentials: %v\n", clearErr)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}
