package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"golang.org/x/sync/singleflight"
)

const DefaultRefreshPath = "/api/refresh"

// RefreshMode selects how concurrent refreshes are coordinated.
type RefreshMode int

const (
	// RefreshShared coalesces concurrent refreshes into one exchange with the
	// authorization endpoint; every waiter receives its outcome. A caller whose
	// expired token was already replaced in the store reuses the stored token.
	RefreshShared RefreshMode = iota
	// RefreshIndependent lets every unauthorized call run its own exchange.
	// Concurrent calls then refresh redundantly, and when the remote rotates
	// refresh tokens all but one of them fail.
	RefreshIndependent
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshShared:
		return "shared"
	case RefreshIndependent:
		return "independent"
	default:
		return fmt.Sprintf("RefreshMode(%d)", int(m))
	}
}

func ParseRefreshMode(s string) (RefreshMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared":
		return RefreshShared, nil
	case "independent":
		return RefreshIndependent, nil
	default:
		return RefreshShared, fmt.Errorf("unknown refresh mode '%s'", s)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

const flightKey = "refresh"

type refresher struct {
	endpoint string
	http     *http.Client
	store    credentials.Store
	mode     RefreshMode
	group    singleflight.Group
	log      *logging.Logger
}

// Refresh exchanges the stored refresh token for new credentials.
func (r *refresher) Refresh(ctx context.Context) (credentials.Pair, error) {
	return r.do(ctx, r.exchange)
}

// renew obtains an access token to replace stale, the token an unauthorized
// call was sent with.
func (r *refresher) renew(ctx context.Context, stale string) (string, error) {
	if current, ok := r.replaced(ctx, stale); ok {
		r.log.Debugf("access token already replaced; reusing stored token\n")
		return current, nil
	}

	pair, err := r.do(ctx, func(ctx context.Context) (credentials.Pair, error) {
		// another flight may have finished between the check above and now
		if current, ok := r.replaced(ctx, stale); ok {
			return credentials.Pair{AccessToken: current}, nil
		}
		return r.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// replaced reports the stored access token when it differs from stale. Only
// meaningful when refreshes are shared.
func (r *refresher) replaced(ctx context.Context, stale string) (string, bool) {
	if r.mode != RefreshShared {
		return "", false
	}
	current, err := r.store.Get(ctx, credentials.AccessTokenKey)
	if err != nil || current == "" || current == stale {
		return "", false
	}
	return current, true
}

func (r *refresher) do(
	ctx context.Context,
	fn func(context.Context) (credentials.Pair, error),
) (
	credentials.Pair,
	error,
) {
	if r.mode == RefreshIndependent {
		return fn(ctx)
	}

	// the shared exchange must outlive any single waiter's cancellation
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey, func() (any, error) {
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return credentials.Pair{}, res.Err
		}
		if res.Shared {
			r.log.Debugf("joined in-flight token refresh\n")
		}
		return res.Val.(credentials.Pair), nil
	case <-ctx.Done():
		return credentials.Pair{}, ctx.Err()
	}
}

// exchange is the refresh procedure: read the refresh token, post it to the
// authorization endpoint, and store what comes back. The store is only written
// on success.
func (r *refresher) exchange(ctx context.Context) (credentials.Pair, error) {
	refreshToken, err := r.store.Get(ctx, credentials.RefreshTokenKey)
	if errors.Is(err, credentials.ErrAbsent) || (err == nil && refreshToken == "") {
		r.log.Debugf("no refresh token stored; not contacting %s\n", r.endpoint)
		return credentials.Pair{}, ErrNoRefreshToken
	}
	if err != nil {
		r.log.Errorf("failed to read refresh token: %v\n", err)
		return credentials.Pair{}, fmt.Errorf("%w: %w", ErrNoRefreshToken, err)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("%w: %w", ErrRefreshRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("%w: %w", ErrRefreshRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	r.log.Debugf("posting refresh token to %s\n", r.endpoint)
	res, err := r.http.Do(req)
	if err != nil {
		r.log.Errorf("failed to post refresh: %v\n", err)
		return credentials.Pair{}, fmt.Errorf("%w: %w", ErrRefreshRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		discard(res)
		r.log.Infof("refresh rejected with status %d\n", res.StatusCode)
		return credentials.Pair{}, fmt.Errorf("%w: status %d", ErrRefreshRejected, res.StatusCode)
	}

	decoded := refreshResponse{}
	if err := json.NewDecoder(io.LimitReader(res.Body, maxRefreshBody)).Decode(&decoded); err != nil {
		r.log.Errorf("failed to decode refresh response: %v\n", err)
		return credentials.Pair{}, fmt.Errorf("%w: %w", ErrRefreshResponse, err)
	}
	if decoded.AccessToken == "" {
		r.log.Errorf("refresh response carried no access token\n")
		return credentials.Pair{}, fmt.Errorf("%w: missing access token", ErrRefreshResponse)
	}

	pair := credentials.Pair{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
	}
	if err := credentials.SavePair(ctx, r.store, pair); err != nil {
		r.log.Errorf("failed to store refreshed tokens: %v\n", err)
		return credentials.Pair{}, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	} else {
		r.log.Debugf("refresh token rotated\n")
	}

	r.log.Infof("refreshed access token\n")
	return pair, nil
}

const maxRefreshBody = 1 << 20

// discard drains and closes a response body so the connection can be reused.
func discard(res *http.Response) {
	io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	res.Body.Close()
}
