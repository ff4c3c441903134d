// Package authtest provides a fake remote API for exercising the credentialed
// request client: an authorization endpoint that exchanges refresh tokens, and
// resource endpoints that answer 401 to missing or expired access tokens.
package authtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const DefaultRefreshPath = "/api/refresh"

// RecordedRequest is what the remote saw of one resource request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Remote is the fake API. All methods are safe for concurrent use.
type Remote struct {
	mu sync.Mutex

	access  map[string]bool
	refresh map[string]bool
	rotate  bool

	requests      []RecordedRequest
	refreshCalls  int
	unauthorized  int
	refreshStatus int
	refreshGate   func()
	resources     map[string]http.HandlerFunc
	queued        []string

	router *mux.Router
}

// NewRemote builds a remote that rotates refresh tokens on every use.
func NewRemote() *Remote {
	r := &Remote{
		access:    make(map[string]bool),
		refresh:   make(map[string]bool),
		rotate:    true,
		resources: make(map[string]http.HandlerFunc),
	}

	router := mux.NewRouter()
	router.HandleFunc(DefaultRefreshPath, r.handleRefresh).Methods(http.MethodPost)
	router.PathPrefix("/").HandlerFunc(r.handleResource)
	r.router = router
	return r
}

func (r *Remote) Handler() http.Handler {
	return r.router
}

// SetRotation controls whether a refresh consumes the presented refresh token
// and returns a new one, or leaves it valid and returns only an access token.
func (r *Remote) SetRotation(rotate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate = rotate
}

// FailRefresh makes the authorization endpoint answer with status until reset
// with zero.
func (r *Remote) FailRefresh(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshStatus = status
}

// GateRefresh installs a function every refresh call blocks on before it is
// processed. Nil removes the gate.
func (r *Remote) GateRefresh(gate func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshGate = gate
}

// Handle overrides the default resource handler for an exact path. Overrides
// only run for authorized requests.
func (r *Remote) Handle(path string, handler http.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[path] = handler
}

// IssuePair mints a valid access/refresh pair.
func (r *Remote) IssuePair() credentials.Pair {
	r.mu.Lock()
	defer r.mu.Unlock()
	return credentials.Pair{
		AccessToken:  r.issueAccess(),
		RefreshToken: r.issueRefresh(),
	}
}

// QueueAccessTokens fixes the values of the next access tokens the
// remote issues, by refresh or IssuePair.
func (r *Remote) QueueAccessTokens(tokens ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, tokens...)
}

// AcceptAccess marks a caller-chosen access token as valid.
func (r *Remote) AcceptAccess(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.access[token] = true
}

// AcceptRefresh marks a caller-chosen refresh token as valid.
func (r *Remote) AcceptRefresh(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[token] = true
}

// ExpireAccess invalidates an access token; an empty token expires all of them.
func (r *Remote) ExpireAccess(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		clear(r.access)
		return
	}
	delete(r.access, token)
}

func (r *Remote) RevokeRefresh(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, token)
}

func (r *Remote) ValidAccess(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access[token]
}

func (r *Remote) ValidRefresh(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh[token]
}

func (r *Remote) RefreshCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshCalls
}

// Unauthorized counts resource requests answered with 401.
func (r *Remote) Unauthorized() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unauthorized
}

func (r *Remote) Requests() []RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedRequest(nil), r.requests...)
}

func (r *Remote) issueAccess() string {
	token := "access-" + uuid.NewString()
	if len(r.queued) > 0 {
		token, r.queued = r.queued[0], r.queued[1:]
	}
	r.access[token] = true
	return token
}

func (r *Remote) issueRefresh() string {
	token := "refresh-" + uuid.NewString()
	r.refresh[token] = true
	return token
}

func (r *Remote) handleRefresh(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.refreshCalls++
	gate := r.refreshGate
	r.mu.Unlock()

	if gate != nil {
		gate()
	}

	body := refreshRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	if r.refreshStatus != 0 {
		status := r.refreshStatus
		r.mu.Unlock()
		w.WriteHeader(status)
		return
	}
	if !r.refresh[body.RefreshToken] {
		r.mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	response := refreshResponse{AccessToken: r.issueAccess()}
	if r.rotate {
		delete(r.refresh, body.RefreshToken)
		response.RefreshToken = r.issueRefresh()
	}
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&response)
}

func (r *Remote) handleResource(w http.ResponseWriter, req *http.Request) {
	authorization := req.Header.Get("Authorization")
	body := readBody(req)

	r.mu.Lock()
	r.requests = append(r.requests, RecordedRequest{
		Method:        req.Method,
		Path:          req.URL.Path,
		Authorization: authorization,
		Body:          body,
	})
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	authorized := ok && r.access[token]
	if !authorized {
		r.unauthorized++
	}
	handler := r.resources[req.URL.Path]
	r.mu.Unlock()

	if !authorized {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if handler != nil {
		handler(w, req)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"method": req.Method,
		"path":   req.URL.Path,
		"body":   body,
		"served": time.Now().UTC().Format(time.RFC3339),
	})
}

func readBody(req *http.Request) string {
	if req.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	return string(data)
}
