package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

type attemptState int

const (
	attemptInitial attemptState = iota
	attemptRetried
)

// attempt is one originating call: the request as the caller built it, its
// body buffered for replay, and whether the single replay has been used.
type attempt struct {
	req   *http.Request
	body  []byte
	state attemptState
}

// newAttempt takes ownership of the request body, as a RoundTripper must.
func newAttempt(req *http.Request) (*attempt, error) {
	a := &attempt{req: req, state: attemptInitial}
	if req.Body == nil || req.Body == http.NoBody {
		return a, nil
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("couldn't buffer request body: %w", err)
	}
	a.body = body
	return a, nil
}

// retry moves the attempt to its retried state. It returns false when the
// replay has already been spent.
func (a *attempt) retry() bool {
	if a.state == attemptRetried {
		return false
	}
	a.state = attemptRetried
	return true
}

// build returns a fresh copy of the original request carrying token. An empty
// token leaves the caller's headers untouched.
func (a *attempt) build(token string) *http.Request {
	req := a.req.Clone(a.req.Context())
	if a.body != nil {
		req.Body = io.NopCloser(bytes.NewReader(a.body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(a.body)), nil
		}
		req.ContentLength = int64(len(a.body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
