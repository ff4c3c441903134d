// Package testutil provides HTTP assertion helpers for handler and
// middleware tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// Cookies returns a Cookie header carrying the given name/value pairs
func Cookies(cookies ...*http.Cookie) Header {
	values := make([]string, 0, len(cookies))
	for _, c := range cookies {
		values = append(values, c.Name+"="+c.Value)
	}
	return Header{
		Key:   "Cookie",
		Value: strings.Join(values, "; "),
	}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectRedirect validates a 303 redirect response and returns the Location header
func ExpectRedirect(
	t *testing.T,
	result HTTPResult,
) string {
	t.Helper()
	if result.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect (303), got %d. Body: %s", result.Code, string(result.Body))
	}
	location := result.Headers.Get("Location")
	if location == "" {
		t.Fatal("expected Location header in redirect")
	}
	return location
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return serve(router, httptest.NewRequest(http.MethodGet, url, nil), response, headers)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
) HTTPResult {
	req := httptest.NewRequest(http.MethodPost, urlPath, strings.NewReader(body))
	return serve(router, req, response, []Header{ContentTypeJSON()})
}

// SetCookies returns the cookies a response set, keyed by name
func SetCookies(result HTTPResult) map[string]*http.Cookie {
	res := http.Response{Header: result.Headers}
	cookies := make(map[string]*http.Cookie)
	for _, c := range res.Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func serve(router http.Handler, req *http.Request, response any, headers []Header) HTTPResult {
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	result := HTTPResult{Code: rec.Code, Headers: rec.Header(), Body: rec.Body.Bytes()}
	if response == nil || len(result.Body) == 0 {
		return result
	}
	if err := json.Unmarshal(result.Body, response); err != nil {
		result.Error = fmt.Errorf("decode %s %s: %w\n%s", req.Method, req.URL.Path, err, result.Body)
	}
	return result
}
