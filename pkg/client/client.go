package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

type LogLevel = logging.Level

const (
	LogLevelNone  = logging.LevelNone
	LogLevelError = logging.LevelError
	LogLevelInfo  = logging.LevelInfo
	LogLevelDebug = logging.LevelDebug
)
const LogLevelDefault = logging.LevelDefault

// Options configures a Client. Only BaseURL is required.
type Options struct {
	// BaseURL is the remote API that relative call paths resolve against.
	BaseURL string
	// RefreshURL is the token refresh endpoint. Defaults to BaseURL followed by
	// DefaultRefreshPath.
	RefreshURL string
	// Store holds the credential pair. Defaults to an empty MemoryStore.
	Store credentials.Store
	// Transport sends the requests once credentials are attached, and sends
	// refresh exchanges as-is. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Timeout bounds each call, including its refresh and replay.
	Timeout     time.Duration
	RefreshMode RefreshMode
	// LogLevel defaults to LogLevelNone.
	LogLevel LogLevel
}

// Client performs API calls with the stored bearer credential attached, and
// recovers once per call from an expired access token.
type Client struct {
	baseURL   *url.URL
	store     credentials.Store
	http      *http.Client
	transport *Transport
	refresher *refresher
	log       *logging.Logger
}

func New(opts Options) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url '%s': %w", opts.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url '%s': scheme and host required", opts.BaseURL)
	}

	refreshURL := opts.RefreshURL
	if refreshURL == "" {
		refreshURL = strings.TrimRight(opts.BaseURL, "/") + DefaultRefreshPath
	}
	if _, err := url.Parse(refreshURL); err != nil {
		return nil, fmt.Errorf("invalid refresh url '%s': %w", refreshURL, err)
	}

	switch opts.RefreshMode {
	case RefreshShared, RefreshIndependent:
	default:
		return nil, fmt.Errorf("invalid refresh mode %v", opts.RefreshMode)
	}

	store := opts.Store
	if store == nil {
		store = credentials.NewMemoryStore()
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := logging.New("client", opts.LogLevel)

	refresher := &refresher{
		endpoint: refreshURL,
		http:     &http.Client{Transport: base, Timeout: opts.Timeout},
		store:    store,
		mode:     opts.RefreshMode,
		log:      logger,
	}
	transport := &Transport{
		base:      base,
		store:     store,
		refresher: refresher,
		log:       logger,
	}

	return &Client{
		baseURL:   baseURL,
		store:     store,
		http:      &http.Client{Transport: transport, Timeout: opts.Timeout},
		transport: transport,
		refresher: refresher,
		log:       logger,
	}, nil
}

// Store returns the credential store shared by this client.
func (c *Client) Store() credentials.Store {
	return c.store
}

// HTTPClient returns the underlying credentialed *http.Client, for libraries
// that want to make their own calls through it.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Transport returns the credentialed RoundTripper.
func (c *Client) Transport() http.RoundTripper {
	return c.transport
}

// Do sends req like http.Client.Do, with credentials attached.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Call sends a request to path, resolved against the base URL. Absolute URLs
// are used as given.
func (c *Client) Call(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
) (
	*http.Response,
	error,
) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Call(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(
	ctx context.Context,
	path string,
	contentType string,
	body io.Reader,
) (
	*http.Response,
	error,
) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// DoJSON sends in (if non-nil) as a JSON body and decodes a 2xx response into
// out (if non-nil). Other statuses are returned as *StatusError.
func (c *Client) DoJSON(
	ctx context.Context,
	method string,
	path string,
	in any,
	out any,
) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("couldn't encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		return &StatusError{
			Method:     method,
			URL:        req.URL.Redacted(),
			StatusCode: res.StatusCode,
			Body:       data,
		}
	}

	if out == nil {
		return nil
	}
	// an empty body leaves out untouched
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("couldn't decode response: %w", err)
	}
	return nil
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in any, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, in, out)
}

// Refresh runs the refresh procedure on demand. It fails with
// ErrNoRefreshToken without contacting the remote when no refresh token is
// stored, and leaves the store untouched on any failure.
func (c *Client) Refresh(ctx context.Context) (credentials.Pair, error) {
	return c.refresher.Refresh(ctx)
}

// SignIn stores the pair issued by the authorization service at login.
func (c *Client) SignIn(ctx context.Context, pair credentials.Pair) error {
	if err := credentials.SavePair(ctx, c.store, pair); err != nil {
		return err
	}
	c.log.Debugf("stored credentials\n")
	return nil
}

// SignOut forgets both tokens.
func (c *Client) SignOut(ctx context.Context) error {
	if err := credentials.Clear(ctx, c.store); err != nil {
		return err
	}
	c.log.Debugf("cleared credentials\n")
	return nil
}

func (c *Client) resolve(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	base := strings.TrimRight(c.baseURL.String(), "/")
	return base + "/" + strings.TrimLeft(path, "/")
}
