package credentials

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// CookieOptions configures the attributes of credential cookies.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
	// MaxAge in seconds; zero writes session cookies.
	MaxAge int
}

func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	}
}

func (o CookieOptions) path() string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

func (o CookieOptions) cookie(name string, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.path(),
		MaxAge:   o.MaxAge,
		SameSite: o.SameSite,
		Secure:   o.Secure,
		HttpOnly: true,
	}
}

func (o CookieOptions) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:   name,
		Path:   o.path(),
		MaxAge: -1,
	}
}

// CookieStore persists credentials as cookies in a cookie jar scoped to one
// origin, the way a browser keeps them for the application's site.
type CookieStore struct {
	jar    http.CookieJar
	origin *url.URL
	opts   CookieOptions
}

// NewCookieStore creates a jar using the public suffix list and scopes it to
// origin. Secure is dropped for plain http origins, since the jar would never
// return such cookies.
func NewCookieStore(origin string, opts CookieOptions) (*CookieStore, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("couldn't create cookie jar: %w", err)
	}
	return NewCookieStoreWithJar(jar, origin, opts)
}

func NewCookieStoreWithJar(jar http.CookieJar, origin string, opts CookieOptions) (*CookieStore, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie origin '%s': %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid cookie origin '%s': scheme and host required", origin)
	}
	if u.Scheme != "https" {
		opts.Secure = false
	}
	u = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: opts.path()}

	return &CookieStore{
		jar:    jar,
		origin: u,
		opts:   opts,
	}, nil
}

// Jar exposes the underlying jar so it can be shared with an http.Client.
func (s *CookieStore) Jar() http.CookieJar {
	return s.jar
}

func (s *CookieStore) Get(_ context.Context, key string) (string, error) {
	for _, cookie := range s.jar.Cookies(s.origin) {
		if cookie.Name == key {
			return cookie.Value, nil
		}
	}
	return "", ErrAbsent
}

func (s *CookieStore) Set(_ context.Context, key string, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.jar.SetCookies(s.origin, []*http.Cookie{s.opts.cookie(key, value)})
	return nil
}

func (s *CookieStore) Remove(_ context.Context, key string) error {
	s.jar.SetCookies(s.origin, []*http.Cookie{s.opts.expired(key)})
	return nil
}

// RequestStore is the store as seen while serving one HTTP request: reads come
// from the request's cookies, writes go out as Set-Cookie headers and are
// visible to later reads within the same request.
type RequestStore struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu      sync.Mutex
	written map[string]*string
}

func NewRequestStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *RequestStore {
	return &RequestStore{
		w:       w,
		r:       r,
		opts:    opts,
		written: make(map[string]*string),
	}
}

func (s *RequestStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	value, ok := s.written[key]
	s.mu.Unlock()

	if ok {
		if value == nil {
			return "", ErrAbsent
		}
		return *value, nil
	}

	cookie, err := s.r.Cookie(key)
	if err != nil || cookie.Value == "" {
		return "", ErrAbsent
	}
	return cookie.Value, nil
}

func (s *RequestStore) Set(_ context.Context, key string, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		http.SetCookie(s.w, s.opts.cookie(key, value))
	}
	s.written[key] = &value
	return nil
}

func (s *RequestStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		http.SetCookie(s.w, s.opts.expired(key))
	}
	s.written[key] = nil
	return nil
}
